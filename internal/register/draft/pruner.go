package draft

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Expirer is a draft that can drop itself once it is older than a cutoff.
type Expirer interface {
	Key() string
	Expire(ctx context.Context, cutoff time.Time) bool
}

// Pruner periodically removes drafts nobody came back to. It runs as a
// background goroutine and is stopped via its context or Stop.
//
// A retention of 0 disables pruning entirely.
type Pruner struct {
	drafts    []Expirer
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	log       zerolog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	started   bool
}

type PrunerConfig struct {
	// RetentionDays is how long an untouched draft is kept.
	// 0 means keep forever (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

// NewPruner creates a pruner but does not start it.
func NewPruner(cfg PrunerConfig, logger zerolog.Logger, drafts ...Expirer) *Pruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &Pruner{
		drafts:    drafts,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		now:       time.Now,
		log:       logger,
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is cancelled or Stop is called.
func (p *Pruner) Start(ctx context.Context) {
	p.started = true
	if p.retention <= 0 {
		p.log.Info().Msg("draft pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.log.Info().
		Int("retention_days", int(p.retention.Hours()/24)).
		Int("interval_hours", int(p.interval.Hours())).
		Msg("draft pruner started")
}

// Stop signals the pruner to exit and waits for it to finish. It is safe to
// call more than once, and before Start.
func (p *Pruner) Stop() {
	if !p.started {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := p.now().UTC().Add(-p.retention)
	for _, d := range p.drafts {
		if d.Expire(ctx, cutoff) {
			p.log.Info().
				Str("draft", d.Key()).
				Str("cutoff", cutoff.Format(time.RFC3339)).
				Msg("expired stale draft")
		}
	}
}
