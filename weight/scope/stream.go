package scope

import (
	"context"
	"fmt"

	"github.com/karma-hep/trigweight/weight"
)

// StreamConfig configures a Stream.
type StreamConfig struct {
	Mask         LumiFilter // certified luminosity blocks; nil processes everything. Applied to real data only.
	RequireFired bool       // drop events where no resolved path fired
}

// StreamStats counts what a stream did with its events.
type StreamStats struct {
	Processed      int
	SkippedMask    int
	SkippedUnfired int
	Runs           int
	LumiBlocks     int
}

// Stream plays the host scheduler for one Producer: it opens and closes run
// and luminosity-block scopes as the event sequence crosses their boundaries.
// Events must be grouped by run and, within a run, by luminosity block.
type Stream struct {
	producer *Producer
	cfg      StreamConfig
	stats    StreamStats
}

// NewStream wraps an initialized producer.
func NewStream(producer *Producer, cfg StreamConfig) *Stream {
	return &Stream{producer: producer, cfg: cfg}
}

// Stats returns the counters accumulated so far.
func (s *Stream) Stats() StreamStats { return s.stats }

// Process weights events in order and passes every result to emit.
// Scopes left open by the last event are closed before returning.
func (s *Stream) Process(ctx context.Context, events []Event, emit func(Result) error) error {
	p := s.producer
	if p.State() == Uninitialized {
		return fmt.Errorf("%w: stream started before InitGlobal", weight.ErrOrdering)
	}
	isData := p.Global() != nil && p.Global().IsData
	for _, ev := range events {
		if isData && s.cfg.Mask != nil && !s.cfg.Mask.Contains(ev.Run, ev.Lumi) {
			s.stats.SkippedMask++
			continue
		}
		if err := s.enter(ctx, ev); err != nil {
			return err
		}
		res, err := p.Produce(ev)
		if err != nil {
			return err
		}
		if s.cfg.RequireFired && !res.AnyFired {
			s.stats.SkippedUnfired++
			continue
		}
		s.stats.Processed++
		if err := emit(res); err != nil {
			return err
		}
	}
	return s.closeRun()
}

// enter makes sure the run and luminosity block of ev are the open scopes.
func (s *Stream) enter(ctx context.Context, ev Event) error {
	p := s.producer
	if rc := p.Run(); rc == nil || rc.Run != ev.Run {
		if err := s.closeRun(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.BeginRun(ev.Run); err != nil {
			return err
		}
		s.stats.Runs++
	}
	if lc := p.Lumi(); lc != nil && lc.Lumi == ev.Lumi {
		return nil
	}
	if p.Lumi() != nil {
		if err := p.EndLumiBlock(); err != nil {
			return err
		}
	}
	if err := p.BeginLumiBlock(ev.Lumi); err != nil {
		return err
	}
	s.stats.LumiBlocks++
	return nil
}

func (s *Stream) closeRun() error {
	p := s.producer
	if p.Lumi() != nil {
		if err := p.EndLumiBlock(); err != nil {
			return err
		}
	}
	if p.Run() != nil {
		return p.EndRun()
	}
	return nil
}
