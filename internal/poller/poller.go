// Package poller runs the fetch, extract, compare, notify and persist cycle on a
// fixed interval.
package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/availmon/internal/monitor"
	"github.com/JakeFAU/availmon/internal/snapshot"
)

// DefaultSubject is used when Config.Subject is empty.
const DefaultSubject = "Holland2Stay Rentals Numbers Changed"

const snapshotContentType = "text/html; charset=utf-8"

// Config controls Poller behavior.
type Config struct {
	URL            string
	Interval       time.Duration
	Subject        string
	Recipients     []string
	SnapshotPrefix string
}

// Deps are the collaborators a Poller drives. Snapshots, Hasher, Notifier and
// Recorder are optional.
type Deps struct {
	Fetcher   monitor.Fetcher
	Extractor monitor.Extractor
	History   monitor.HistoryStore
	Notifier  monitor.Notifier
	Snapshots monitor.BlobStore
	Hasher    monitor.Hasher
	Clock     monitor.Clock
	IDs       monitor.IDGenerator
	Recorder  monitor.Recorder
}

// CycleResult describes what one PollOnce call did.
type CycleResult struct {
	CycleID     string
	Outcome     monitor.Outcome
	Count       int
	Previous    int
	HadPrevious bool
	SnapshotURI string
	Duration    time.Duration
	Err         error
}

// Status is a point-in-time view of the poller for the status API.
type Status struct {
	URL         string          `json:"url"`
	Interval    string          `json:"interval"`
	Ready       bool            `json:"ready"`
	LastCount   *int            `json:"last_count"`
	LastOutcome monitor.Outcome `json:"last_outcome,omitempty"`
	LastCycleID string          `json:"last_cycle_id,omitempty"`
	LastPollAt  *time.Time      `json:"last_poll_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Cycles      int64           `json:"cycles"`
}

// Poller owns the in-memory last count and drives one target.
type Poller struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	primed    bool
	hasLast   bool
	lastCount int
	status    Status
}

// New validates deps and cfg and returns a Poller.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Poller, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("fetcher is required")
	case deps.Extractor == nil:
		return nil, errors.New("extractor is required")
	case deps.History == nil:
		return nil, errors.New("history store is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	case deps.IDs == nil:
		return nil, errors.New("id generator is required")
	}
	if cfg.URL == "" {
		return nil, errors.New("target url is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("poll interval must be > 0, got %s", cfg.Interval)
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if deps.Notifier == nil {
		deps.Notifier = unconfigured{}
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		status: Status{URL: cfg.URL, Interval: cfg.Interval.String()},
	}, nil
}

// Run loads the baseline and polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		zap.String("url", p.cfg.URL),
		zap.Duration("interval", p.cfg.Interval),
	)
	p.prime(ctx)
	for {
		p.PollOnce(ctx)
		if err := sleep(ctx, p.cfg.Interval); err != nil {
			p.logger.Info("poller stopped", zap.Int64("cycles", p.Status().Cycles))
			return nil
		}
	}
}

// PollOnce runs a single cycle. It never panics and never returns an error
// directly; failures are reported in the result.
func (p *Poller) PollOnce(ctx context.Context) (res CycleResult) {
	start := p.deps.Clock.Now()
	cycleID, err := p.deps.IDs.NewID()
	if err != nil {
		p.logger.Warn("cycle id generation failed", zap.Error(err))
		cycleID = fmt.Sprintf("cycle-%d", start.UnixNano())
	}
	logger := p.logger.With(zap.String("cycle_id", cycleID))

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("poll cycle panicked",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			res = CycleResult{
				CycleID: cycleID,
				Outcome: monitor.OutcomePanic,
				Err:     fmt.Errorf("poll cycle panic: %v", rec),
			}
		}
		res.Duration = p.deps.Clock.Now().Sub(start)
		p.finish(res)
	}()

	p.prime(ctx)
	res = p.cycle(ctx, cycleID, logger)
	return res
}

// Status returns a copy of the current status.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status
	st.Ready = p.primed
	if p.hasLast {
		v := p.lastCount
		st.LastCount = &v
	}
	if st.LastPollAt != nil {
		t := *st.LastPollAt
		st.LastPollAt = &t
	}
	return st
}

func (p *Poller) cycle(ctx context.Context, cycleID string, logger *zap.Logger) CycleResult {
	res := CycleResult{CycleID: cycleID}

	page, err := p.deps.Fetcher.Fetch(ctx, p.cfg.URL)
	if err != nil {
		logger.Warn("fetch failed", zap.String("url", p.cfg.URL), zap.Error(err))
		res.Outcome = monitor.OutcomeFetchFailed
		res.Err = err
		return res
	}
	logger.Debug("page fetched",
		zap.String("final_url", page.FinalURL),
		zap.Int("status", page.StatusCode),
		zap.Int("bytes", len(page.HTML)),
		zap.Duration("render", page.Duration),
	)

	reading := p.deps.Extractor.Extract(page.HTML)
	if !reading.Found {
		logger.Warn("availability marker not found", zap.String("url", p.cfg.URL))
		res.Outcome = monitor.OutcomeExtractionMiss
		res.Err = monitor.ErrExtractionMiss
		res.SnapshotURI = p.archive(ctx, cycleID, page.HTML, logger)
		return res
	}

	res.Count = reading.Count
	p.deps.Recorder.SetAvailable(reading.Count)
	previous, known := p.last()
	res.Previous, res.HadPrevious = previous, known

	switch {
	case !known:
		res.Outcome = monitor.OutcomeFirstReading
		res.Err = p.record(ctx, reading.Count, logger)
		logger.Info("first reading recorded", zap.Int("count", reading.Count))
	case reading.Count == previous:
		res.Outcome = monitor.OutcomeUnchanged
		logger.Info("availability unchanged", zap.Int("count", reading.Count))
	default:
		res.Outcome = monitor.OutcomeChanged
		logger.Info("availability changed",
			zap.Int("previous", previous),
			zap.Int("count", reading.Count),
		)
		notifyErr := p.notify(ctx, previous, reading.Count, logger)
		res.Err = errors.Join(notifyErr, p.record(ctx, reading.Count, logger))
	}
	p.setLast(reading.Count)
	return res
}

func (p *Poller) notify(ctx context.Context, previous, current int, logger *zap.Logger) error {
	msg := monitor.Message{
		Subject: p.cfg.Subject,
		Body: fmt.Sprintf("The count of available rentals has changed from %d to %d. Check %s",
			previous, current, p.cfg.URL),
		Recipients: append([]string(nil), p.cfg.Recipients...),
		Previous:   previous,
		Current:    current,
		URL:        p.cfg.URL,
		ObservedAt: p.deps.Clock.Now(),
	}
	err := p.deps.Notifier.Notify(ctx, msg)
	p.deps.Recorder.ObserveNotification(err)
	if err != nil {
		logger.Error("notification failed", zap.Error(err))
		return err
	}
	logger.Info("notification sent", zap.Int("recipients", len(msg.Recipients)))
	return nil
}

func (p *Poller) record(ctx context.Context, count int, logger *zap.Logger) error {
	obs := monitor.Observation{
		Count:     count,
		Timestamp: p.deps.Clock.Now().UTC().Format(time.RFC3339),
		URL:       p.cfg.URL,
	}
	err := p.deps.History.Append(ctx, obs)
	p.deps.Recorder.ObserveHistoryWrite(err)
	if err != nil {
		logger.Error("history append failed", zap.Int("count", count), zap.Error(err))
		return err
	}
	return nil
}

func (p *Poller) archive(ctx context.Context, cycleID string, html []byte, logger *zap.Logger) string {
	if p.deps.Snapshots == nil {
		return ""
	}
	var digest string
	if p.deps.Hasher != nil {
		d, err := p.deps.Hasher.Hash(html)
		if err != nil {
			logger.Warn("snapshot hash failed", zap.Error(err))
		}
		digest = d
	}
	path := snapshot.ObjectPath(p.cfg.SnapshotPrefix, p.deps.Clock.Now(), cycleID, digest)
	uri, err := p.deps.Snapshots.PutObject(ctx, path, snapshotContentType, bytes.NewReader(html))
	if err != nil {
		logger.Warn("snapshot upload failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	logger.Info("page snapshot stored", zap.String("uri", uri))
	return uri
}

// prime loads the baseline count once. A read failure leaves the baseline
// empty so the next successful reading is recorded as the first.
func (p *Poller) prime(ctx context.Context) {
	p.mu.Lock()
	done := p.primed
	p.mu.Unlock()
	if done {
		return
	}

	obs, ok, err := p.deps.History.LoadLast(ctx)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.primed = true
	switch {
	case err != nil:
		p.logger.Warn("history unavailable, starting without a baseline", zap.Error(err))
	case ok:
		p.hasLast, p.lastCount = true, obs.Count
		p.logger.Info("baseline loaded", zap.Int("count", obs.Count), zap.String("timestamp", obs.Timestamp))
	default:
		p.logger.Info("no history yet")
	}
}

func (p *Poller) last() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCount, p.hasLast
}

func (p *Poller) setLast(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasLast, p.lastCount = true, count
}

func (p *Poller) finish(res CycleResult) {
	p.deps.Recorder.ObservePoll(res.Outcome, res.Duration)
	now := p.deps.Clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Cycles++
	p.status.LastOutcome = res.Outcome
	p.status.LastCycleID = res.CycleID
	p.status.LastPollAt = &now
	p.status.LastError = ""
	if res.Err != nil {
		p.status.LastError = res.Err.Error()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type unconfigured struct{}

func (unconfigured) Notify(context.Context, monitor.Message) error {
	return fmt.Errorf("%w: no notifier wired", monitor.ErrNotConfigured)
}

type nopRecorder struct{}

func (nopRecorder) ObservePoll(monitor.Outcome, time.Duration) {}
func (nopRecorder) SetAvailable(int)                           {}
func (nopRecorder) ObserveNotification(error)                  {}
func (nopRecorder) ObserveHistoryWrite(error)                  {}
