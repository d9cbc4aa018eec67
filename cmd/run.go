package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/karma-hep/trigweight/weight"
	"github.com/karma-hep/trigweight/weight/lumimask"
	"github.com/karma-hep/trigweight/weight/period"
	"github.com/karma-hep/trigweight/weight/scope"
	"github.com/karma-hep/trigweight/weight/source"
	"github.com/karma-hep/trigweight/weight/trace"
)

var (
	replayPath        string   // replay file with trigger menus, prescales and events
	familyPatternArgs []string // family=pattern pairs from the command line
)

// runCmd weights every event of a replay file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Weight the events of a replay file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadJobConfig(settings, familyPatternArgs)
		if err != nil {
			logrus.Fatalf("Invalid job configuration: %v", err)
		}
		startTime := time.Now()
		res, err := runJob(cmd.Context(), cfg, replayPath)
		if err != nil {
			logrus.Fatalf("Weighting failed: %v", err)
		}
		if err := writeRecords(cfg.Records, res.Trace, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Writing records failed: %v", err)
		}
		out := summaryWriter(cfg.Records, cmd.OutOrStdout(), cmd.ErrOrStderr())
		fmt.Fprint(out, renderSummary(res.JobID, trace.Summarize(res.Trace)))
		logrus.Infof("Weighting complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// jobResult is the merged outcome of all streams of a job.
type jobResult struct {
	JobID string
	Trace *trace.WeightTrace
	Stats []scope.StreamStats
}

// runJob loads the period, decision source and mask named by cfg and weights
// the replayed events on cfg.Streams independent streams.
func runJob(ctx context.Context, cfg jobConfig, replay string) (*jobResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := period.Load(cfg.Period)
	if err != nil {
		return nil, err
	}
	src, err := source.Load(replay)
	if err != nil {
		return nil, err
	}
	if src.Process() != cfg.Global.HLTProcessName {
		return nil, fmt.Errorf("%w: replay %s holds trigger results of process %q, job reads %q",
			weight.ErrConfiguration, replay, src.Process(), cfg.Global.HLTProcessName)
	}
	var mask scope.LumiFilter
	if cfg.LumiMask != "" {
		m, err := lumimask.Load(cfg.LumiMask)
		if err != nil {
			return nil, err
		}
		mask = m
	}

	global := cfg.Global
	global.Patterns = append(append([]string(nil), p.Patterns...), cfg.Global.Patterns...)

	jobID := uuid.New().String()
	level := trace.LevelNone
	if cfg.Records != "" {
		level = trace.LevelEvents
	}
	logrus.WithField("job", jobID).Infof("period %s, %d stream(s), data=%t", p.Name, cfg.Streams, global.IsData)

	parts := src.Partition(cfg.Streams)
	traces := make([]*trace.WeightTrace, len(parts))
	stats := make([]scope.StreamStats, len(parts))
	group, groupCtx := errgroup.WithContext(ctx)
	for i := range parts {
		group.Go(func() error {
			log := logrus.WithFields(logrus.Fields{"job": jobID, "stream": i})
			producer := scope.NewProducer(p.Engine, src, log)
			if err := producer.InitGlobal(global); err != nil {
				return err
			}
			wt := trace.NewWeightTrace(level)
			stream := scope.NewStream(producer, scope.StreamConfig{Mask: mask, RequireFired: cfg.RequireFired})
			err := stream.Process(groupCtx, parts[i], func(res scope.Result) error {
				wt.Add(newRecord(res, p.Engine.Menu()))
				return nil
			})
			if err != nil {
				return fmt.Errorf("stream %d: %w", i, err)
			}
			traces[i], stats[i] = wt, stream.Stats()
			log.Debugf("stream done: %+v", stats[i])
			return producer.EndJob()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	merged := trace.NewWeightTrace(level)
	for _, wt := range traces {
		merged.Merge(wt)
	}
	return &jobResult{JobID: jobID, Trace: merged, Stats: stats}, nil
}

// newRecord flattens a result into an output record for the primary family.
func newRecord(res scope.Result, menu *weight.Menu) trace.Record {
	observable := res.Primary.Observable
	if math.IsNaN(observable) {
		observable = 0
	}
	return trace.Record{
		Run:             uint32(res.Run),
		Lumi:            uint32(res.Lumi),
		Event:           uint64(res.Event),
		Weight:          res.Weight,
		TriggerWeight:   res.Trigger.Value,
		StitchingWeight: res.Stitching.Value,
		Family:          res.Primary.Family,
		Path:            int(res.Primary.Path),
		PathName:        menu.Name(res.Primary.Path),
		Fired:           res.Primary.Fired,
		Active:          res.Primary.Active,
		Prescale:        res.Prescale,
		Observable:      observable,
	}
}

// summaryWriter picks the summary destination so it never interleaves with
// records written to stdout.
func summaryWriter(records string, stdout, stderr io.Writer) io.Writer {
	if records == "-" {
		return stderr
	}
	return stdout
}

// writeRecords writes the per-event records as JSON lines to path ("-" for stdout).
func writeRecords(path string, wt *trace.WeightTrace, stdout io.Writer) error {
	switch path {
	case "":
		return nil
	case "-":
		return wt.WriteJSONLines(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating records file: %w", err)
	}
	if err := wt.WriteJSONLines(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func init() {
	runCmd.Flags().StringVar(&replayPath, "replay", "", "Path to the replay file (YAML)")
	_ = runCmd.MarkFlagRequired("replay")

	runCmd.Flags().Bool("is-data", true, "Input is real data (trigger weights) rather than simulation (stitching weights)")
	runCmd.Flags().String("hlt-process", defaultHLTProcess, "Process whose trigger results are read")
	runCmd.Flags().String("period", period.Reference, "Run period: embedded name or path to a period YAML file")
	runCmd.Flags().String("family", defaultFamily, "Trigger family providing the event weight")
	runCmd.Flags().StringArray("pattern", nil, "Additional path-name pattern to resolve (can be repeated)")
	runCmd.Flags().StringArrayVar(&familyPatternArgs, "family-pattern", nil, "Additional pattern of a family as family=pattern (can be repeated)")
	runCmd.Flags().String("lumi-mask", "", "Certified luminosity-block JSON; data outside it is skipped")
	runCmd.Flags().Bool("require-fired", false, "Drop events in which no resolved path fired")
	runCmd.Flags().Int("streams", defaultStreams, "Number of independent processing streams")
	runCmd.Flags().String("records", "", "Write per-event records as JSON lines to this file (- for stdout)")

	for key, flag := range map[string]string{
		isDataKey:       "is-data",
		hltProcessKey:   "hlt-process",
		periodKey:       "period",
		familyKey:       "family",
		patternsKey:     "pattern",
		lumiMaskKey:     "lumi-mask",
		requireFiredKey: "require-fired",
		streamsKey:      "streams",
		recordsKey:      "records",
	} {
		_ = settings.BindPFlag(key, runCmd.Flags().Lookup(flag))
	}

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
