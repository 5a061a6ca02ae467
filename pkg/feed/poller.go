package feed

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Handler receives one fetched payload. Sequence numbers increase by one
// per pass, starting at 1.
type Handler func(ctx context.Context, seq uint64, data []byte) error

// Poller runs fetch passes against a Source. Passes never overlap: the next
// one starts only after the previous fetch and handler have returned.
type Poller struct {
	source   Source
	interval time.Duration
	handle   Handler
	logger   *log.Logger

	trigger chan struct{}
	seq     atomic.Uint64
}

// NewPoller returns a poller that is not running yet.
func NewPoller(source Source, interval time.Duration, handle Handler, logger *log.Logger) *Poller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Poller{
		source:   source,
		interval: interval,
		handle:   handle,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a pass as soon as the current one (if any) finishes.
// Requests made while one is already pending are merged.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Seq returns the sequence number of the most recent pass.
func (p *Poller) Seq() uint64 { return p.seq.Load() }

// Run does one pass immediately and then one per interval or Trigger,
// until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("polling started", "source", p.source.Name(), "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	_ = p.Once(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("polling stopped")
			return ctx.Err()
		case <-ticker.C:
		case <-p.trigger:
		}
		_ = p.Once(ctx)
	}
}

// Once runs a single pass. A panic inside the pass is recovered and
// returned as an error so that one bad snapshot cannot stop the loop.
func (p *Poller) Once(ctx context.Context) (err error) {
	seq := p.seq.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in pass %d: %v", seq, r)
			p.logger.Error("poll pass panicked", "seq", seq, "panic", r)
		}
	}()

	data, err := instrument(ctx, p.source)
	if err != nil {
		p.logger.Warn("fetch failed", "seq", seq, "source", p.source.Name(), "error", err)
		return err
	}
	if err := p.handle(ctx, seq, data); err != nil {
		p.logger.Warn("pass rejected", "seq", seq, "error", err)
		return err
	}
	return nil
}
