// Package statuspoll watches a partner's aggregate verification status from the client side.
// A poll is an explicit task: it starts at a known time, checks on a fixed interval and stops at a
// deadline or on cancel. Nothing is held on the server for an abandoned poll.
package statuspoll

import (
	"context"
	"errors"
	"sync"
	"time"

	"partner-onboarding/internal/verification"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 6 * time.Minute
)

// Outcome is how a poll ended.
type Outcome string

const (
	OutcomeApproved  Outcome = "approved"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// FetchFunc reads the current aggregate status.
type FetchFunc func(ctx context.Context) (verification.AggregateStatus, error)

// Task describes a poll. Zero Interval and Timeout fall back to the defaults.
type Task struct {
	Interval time.Duration
	Timeout  time.Duration
	Fetch    FetchFunc
	// OnStatus, when set, is called after every successful fetch.
	OnStatus func(verification.AggregateStatus)
}

// Result summarizes a finished poll.
type Result struct {
	Outcome    Outcome
	LastStatus verification.AggregateStatus
	Attempts   int
	Errors     int
	LastErr    error
	Elapsed    time.Duration
}

// Poll is a running task.
type Poll struct {
	StartedAt time.Time
	Deadline  time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result Result
}

var ErrNoFetch = errors.New("statuspoll: fetch func is required")

// Start launches the poll. The first check runs immediately.
func (t Task) Start(ctx context.Context) (*Poll, error) {
	if t.Fetch == nil {
		return nil, ErrNoFetch
	}
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	started := time.Now()
	deadline := started.Add(timeout)
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	p := &Poll{
		StartedAt: started,
		Deadline:  deadline,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go p.run(runCtx, t, interval)
	return p, nil
}

// Cancel stops the poll. Safe to call more than once and after completion.
func (p *Poll) Cancel() {
	p.cancel()
}

// Done is closed when the poll has finished.
func (p *Poll) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the poll finishes and returns its result.
func (p *Poll) Wait() Result {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

func (p *Poll) run(ctx context.Context, t Task, interval time.Duration) {
	defer close(p.done)
	defer p.cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var res Result
	for {
		status, err := t.Fetch(ctx)
		res.Attempts++
		if err != nil {
			res.Errors++
			res.LastErr = err
		} else {
			res.LastStatus = status
			if t.OnStatus != nil {
				t.OnStatus(status)
			}
			if status == verification.StatusApproved {
				res.Outcome = OutcomeApproved
				p.finish(res)
				return
			}
		}

		select {
		case <-ctx.Done():
			res.Outcome = OutcomeCancelled
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				res.Outcome = OutcomeTimeout
			}
			p.finish(res)
			return
		case <-ticker.C:
		}
	}
}

func (p *Poll) finish(res Result) {
	res.Elapsed = time.Since(p.StartedAt)
	p.mu.Lock()
	p.result = res
	p.mu.Unlock()
}
