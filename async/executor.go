// Package async implements the one work-offload primitive the scheduler
// needs: run a single blocking closure on a worker goroutine while the
// caller polls, so a foreground progress indicator can keep ticking during
// a multi-second subprocess or network call.
package async

import (
	"context"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/gofrs/uuid"
	waitgroup "github.com/sb10/waitgroup"
)

// Progress is one heartbeat tick, reporting how long the in-flight job has
// been running and a smoothed estimate of how long jobs of this kind
// usually take, for a foreground spinner to render.
type Progress struct {
	JobID       string
	Label       string
	Elapsed     time.Duration
	MeanLatency time.Duration
	Done        bool
	Err         error
}

// Job is a blocking operation to run on a worker goroutine. fn must not
// call back into a script.Interpreter: driver code must marshal any
// interpreter interaction back to the main goroutine.
type Job[R any] func(ctx context.Context) (R, error)

// Handle is returned immediately by Run; poll Done() or block on Wait().
// Memory for the result outlives the worker and is owned by the caller
// through this handle.
type Handle[R any] struct {
	id     string
	done   chan struct{}
	result R
	err    error
}

// ID returns the handle's job id, usable to correlate Heartbeat events.
func (h *Handle[R]) ID() string { return h.id }

// Done reports whether the worker has finished, without blocking.
func (h *Handle[R]) Done() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the worker finishes and returns its result. If the
// caller's ctx is cancelled first, Wait returns ctx.Err() immediately, but
// the worker keeps running to completion in the background, cooperatively;
// its result is simply discarded by the caller.
func (h *Handle[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Executor owns the worker pool and latency tracking for one recipe run,
// following the same grantedCh-shaped done-channel pattern as this
// repository's own transport rate limiter.
type Executor struct {
	wg          *waitgroup.WaitGroup
	latenciesMu sync.Mutex
	latencies   map[string]ewma.MovingAverage
	heartbeat   chan Progress
}

// NewExecutor returns an Executor whose worker goroutines are capped at
// maxConcurrent (0 means unbounded).
func NewExecutor(maxConcurrent int) *Executor {
	return &Executor{
		wg:        waitgroup.New(maxConcurrent),
		latencies: make(map[string]ewma.MovingAverage),
		heartbeat: make(chan Progress, 64),
	}
}

// Heartbeat returns the channel of Progress ticks emitted by every running
// job, consumed by a foreground spinner/log-flush loop.
func (e *Executor) Heartbeat() <-chan Progress { return e.heartbeat }

// Run offloads fn to a worker goroutine and returns immediately with a
// Handle. label groups fn with its moving-average latency bucket (e.g. the
// resource kind: "execute", "remote_file.http", ...).
func Run[R any](e *Executor, label string, fn Job[R]) *Handle[R] {
	id := newID()
	h := &Handle[R]{id: id, done: make(chan struct{})}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx := context.Background()
		start := time.Now()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		tickDone := make(chan struct{})

		go func() {
			for {
				select {
				case <-ticker.C:
					e.emit(Progress{JobID: id, Label: label, Elapsed: time.Since(start), MeanLatency: e.meanLatency(label)})
				case <-tickDone:
					return
				}
			}
		}()

		result, err := fn(ctx)
		close(tickDone)

		h.result, h.err = result, err
		e.recordLatency(label, time.Since(start))
		close(h.done)
		e.emit(Progress{JobID: id, Label: label, Elapsed: time.Since(start), MeanLatency: e.meanLatency(label), Done: true, Err: err})
	}()

	return h
}

func (e *Executor) emit(p Progress) {
	select {
	case e.heartbeat <- p:
	default:
		// a slow/absent consumer must never block the worker pool
	}
}

func (e *Executor) recordLatency(label string, d time.Duration) {
	e.latenciesMu.Lock()
	defer e.latenciesMu.Unlock()
	avg, ok := e.latencies[label]
	if !ok {
		avg = ewma.NewMovingAverage()
		e.latencies[label] = avg
	}
	avg.Add(float64(d))
}

func (e *Executor) meanLatency(label string) time.Duration {
	e.latenciesMu.Lock()
	defer e.latenciesMu.Unlock()
	if avg, ok := e.latencies[label]; ok {
		return time.Duration(avg.Value())
	}
	return 0
}

func newID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "job"
	}
	return id.String()
}
