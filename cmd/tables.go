package cmd

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/karma-hep/trigweight/weight"
	"github.com/karma-hep/trigweight/weight/period"
	"github.com/karma-hep/trigweight/weight/trace"
)

var tablesPeriod string

// tablesCmd prints the threshold, luminosity-weight and stitching tables of a period
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the weighting tables of a run period",
	Run: func(cmd *cobra.Command, args []string) {
		p, err := period.Load(tablesPeriod)
		if err != nil {
			logrus.Fatalf("Failed to load period %s: %v", tablesPeriod, err)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderPeriod(p))
	},
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func newTable(buf *bytes.Buffer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// renderPeriod renders the path menu, every family's threshold table and
// the stitching table.
func renderPeriod(p *period.Period) string {
	var buf bytes.Buffer
	e := p.Engine
	fmt.Fprintf(&buf, "Period %s: %d paths, %d luminosity weights\n", p.Name, e.Menu().Len(), e.Weights().Len())
	renderMenu(&buf, e)
	for _, f := range e.Families() {
		fmt.Fprintf(&buf, "\nFamily %s (observable %s, mandatory=%t)\n", f.Name, f.Observable, f.Mandatory)
		renderThresholds(&buf, e, f)
	}
	if st := e.Stitching(); st != nil {
		buf.WriteString("\nStitching\n")
		table := newTable(&buf, "Lower", "Upper", "Weight")
		bins := st.Bins()
		for i, b := range bins {
			upper := math.Inf(1)
			if i+1 < len(bins) {
				upper = bins[i+1].Lower
			}
			table.Append([]string{formatFloat(b.Lower), formatFloat(upper), formatFloat(b.Weight)})
		}
		table.Render()
	}
	return buf.String()
}

func renderMenu(buf *bytes.Buffer, e *weight.Engine) {
	buf.WriteString("\nMenu\n")
	table := newTable(buf, "ID", "Path", "Weight")
	for i, name := range e.Menu().Names() {
		w := "-"
		if id := weight.PathID(i); e.Weights().Has(id) {
			w = formatFloat(e.Weights().Lookup(id))
		}
		table.Append([]string{strconv.Itoa(i), name, w})
	}
	table.Render()
}

func renderThresholds(buf *bytes.Buffer, e *weight.Engine, f *weight.Family) {
	table := newTable(buf, "Path", "ID", "Lower", "Upper", "Weight")
	for _, row := range f.Thresholds.Rows() {
		upper, _ := f.Thresholds.Upper(row.Path)
		table.Append([]string{
			e.Menu().Name(row.Path),
			strconv.Itoa(int(row.Path)),
			formatFloat(row.Lower),
			formatFloat(upper),
			formatFloat(e.Weights().Lookup(row.Path)),
		})
	}
	table.Render()
}

// renderSummary renders the job summary with per-path event counts.
func renderSummary(jobID string, s *trace.Summary) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "=== Weighting Summary (job %s) ===\n", jobID)
	fmt.Fprintf(&buf, "Events: %d (zero weight %d, no owning path %d, owning path not fired %d)\n",
		s.Events, s.ZeroWeight, s.Unowned, s.NotFired)
	fmt.Fprintf(&buf, "Sum of weights: %s\n", formatFloat(s.SumWeights))
	fmt.Fprintf(&buf, "Effective entries: %.3f\n", s.EffectiveEntries)
	fmt.Fprintf(&buf, "Weighted mean observable: %.3f\n", s.MeanObservable)

	if len(s.PathCounts) == 0 {
		return buf.String()
	}
	names := make([]string, 0, len(s.PathCounts))
	for name := range s.PathCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	table := newTable(&buf, "Path", "Events", "Sum of weights")
	for _, name := range names {
		table.Append([]string{name, strconv.Itoa(s.PathCounts[name]), formatFloat(s.PathWeights[name])})
	}
	table.Render()
	return buf.String()
}

func init() {
	tablesCmd.Flags().StringVar(&tablesPeriod, "period", period.Reference, "Run period: embedded name or path to a period YAML file")
	rootCmd.AddCommand(tablesCmd)
}
