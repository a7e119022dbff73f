// Package telemetry publishes locator snapshots to downstream consumers on a
// fixed interval.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/rover/internal/locator"
	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/timeutil"
	"github.com/banshee-data/rover/internal/version"
)

var logf = monitoring.Component("telemetry")

// Source provides the snapshots to publish. *locator.Locator satisfies it.
type Source interface {
	Snapshot() locator.Snapshot
}

// Report is one published telemetry record.
type Report struct {
	Session  string           `json:"session"`
	Sequence uint64           `json:"sequence"`
	SentAt   time.Time        `json:"sent_at"`
	Build    version.Build    `json:"build"`
	Snapshot locator.Snapshot `json:"snapshot"`
}

// Sink delivers reports somewhere.
type Sink interface {
	Name() string
	Send(ctx context.Context, r Report) error
}

// Publisher samples a Source on every tick and hands the report to each
// sink. Sink failures are logged and counted, never fatal.
type Publisher struct {
	source   Source
	sinks    []Sink
	clock    timeutil.Clock
	interval time.Duration
	session  string
	build    version.Build

	sequence atomic.Uint64
	failures atomic.Uint64
}

// NewPublisher returns a Publisher. A nil clock uses the wall clock.
func NewPublisher(source Source, clock timeutil.Clock, interval time.Duration, sinks ...Sink) *Publisher {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Publisher{
		source:   source,
		sinks:    sinks,
		clock:    clock,
		interval: interval,
		session:  uuid.NewString(),
		build:    version.Current(),
	}
}

// Session identifies this process's report stream.
func (p *Publisher) Session() string {
	return p.session
}

// Published returns the number of reports produced so far.
func (p *Publisher) Published() uint64 {
	return p.sequence.Load()
}

// Failures returns the number of failed sink deliveries.
func (p *Publisher) Failures() uint64 {
	return p.failures.Load()
}

// PublishOnce builds one report and sends it to every sink.
func (p *Publisher) PublishOnce(ctx context.Context) Report {
	r := Report{
		Session:  p.session,
		Sequence: p.sequence.Add(1),
		SentAt:   p.clock.Now(),
		Build:    p.build,
		Snapshot: p.source.Snapshot(),
	}
	for _, s := range p.sinks {
		if err := s.Send(ctx, r); err != nil {
			p.failures.Add(1)
			logf("%s: report %d: %v", s.Name(), r.Sequence, err)
		}
	}
	return r
}

// Run publishes until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("telemetry interval must be positive, got %s", p.interval)
	}
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			p.PublishOnce(ctx)
		}
	}
}
