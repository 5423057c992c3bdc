// Package convergence drives one recipe run: preflight validation, then a
// single declaration-order apply pass over every resource, evaluating
// guards, invoking each resource's driver, and dispatching the
// notifications/subscriptions that apply triggers.
package convergence

import (
	"context"
	"fmt"

	"github.com/inconshreveable/log15"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/resource"
	"github.com/ratazzi/hola/script"
)

// Dispatcher resolves a resource.Kind to the Driver that converges it.
// drivers.Set (built by drivers.NewSet) is the production implementation;
// tests substitute a small map-backed fake.
type Dispatcher interface {
	DriverFor(kind resource.Kind) (drivers.Driver, error)
}

// Outcome records what happened to one record during a run, for a
// caller's summary/report.
type Outcome struct {
	Name       resource.Name
	Kind       resource.Kind
	Action     string
	WasUpdated bool
	SkipReason string
	Err        error
	// Notified is true when this outcome was produced by notification
	// dispatch rather than the main declaration-order pass.
	Notified bool
}

// Scheduler owns one run's state: the indexed record set, the synthesized
// notification edges, and the delayed-notification queue.
type Scheduler struct {
	shell      string
	logger     log15.Logger
	interp     script.Interpreter
	dispatcher Dispatcher
	env        *drivers.Env

	records []*resource.Record
	byName  map[resource.Name]*resource.Record

	delayed *notificationQueue
}

// New builds a Scheduler for one recipe run. shell is the interpreter used
// for string only_if/not_if/execute guards (config.Config.Shell).
func New(shell string, logger log15.Logger, interp script.Interpreter, dispatcher Dispatcher, env *drivers.Env) *Scheduler {
	return &Scheduler{
		shell:      shell,
		logger:     logger,
		interp:     interp,
		dispatcher: dispatcher,
		env:        env,
		delayed:    newNotificationQueue(),
	}
}

// index builds the byName lookup and synthesises, on each subscription's
// Source record, an equivalent Notification targeting the subscriber.
func (s *Scheduler) index(records []*resource.Record) {
	s.records = records
	s.byName = make(map[resource.Name]*resource.Record, len(records))
	for _, r := range records {
		s.byName[r.Name] = r
	}
	for _, r := range records {
		for _, sub := range r.Common.Subscriptions {
			src, ok := s.byName[sub.Source]
			if !ok {
				continue // already rejected by Preflight
			}
			src.Common.Notifications = append(src.Common.Notifications, resource.Notification{
				Target: r.Name,
				Action: sub.Action,
				Timing: sub.Timing,
			})
		}
	}
}

// Run validates, indexes, and applies records in declaration order,
// dispatching notifications as each resource updates, then drains the
// delayed queue after the main pass. An unignored apply failure aborts the
// run immediately: Run returns the outcomes gathered so far alongside the
// error, without touching any later record.
func (s *Scheduler) Run(ctx context.Context, records []*resource.Record) ([]Outcome, error) {
	if err := Preflight(records); err != nil {
		return nil, err
	}
	s.index(records)

	var outcomes []Outcome
	for _, r := range s.records {
		batch, err := s.applyOne(ctx, r, r.DefaultAction(), false)
		outcomes = append(outcomes, batch...)
		if err != nil {
			return outcomes, err
		}
	}

	delayed, err := s.drainDelayed(ctx)
	outcomes = append(outcomes, delayed...)
	if err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// applyOne evaluates r's guards, runs its driver for action, and — if the
// apply reports an update — dispatches r's notifications: immediate ones
// recurse synchronously into the target's own applyOne, delayed ones are
// queued for the post-pass replay. A non-nil error means the run must stop:
// an unignored apply failure, a guard evaluation error, or a failure
// propagated up from a notification this apply triggered.
func (s *Scheduler) applyOne(ctx context.Context, r *resource.Record, action string, notified bool) ([]Outcome, error) {
	lg := s.logger.New("kind", r.Kind, "name", r.Name)

	ok, reason, err := shouldApply(s.shell, s.interp, r.Common)
	if err != nil {
		lg.Error("guard evaluation failed", "err", err)
		out := Outcome{Name: r.Name, Kind: r.Kind, Action: action, Err: err, Notified: notified}
		return []Outcome{out}, fmt.Errorf("%s %s: %w", r.Kind, r.Name, err)
	}
	if !ok {
		lg.Debug("skipped", "reason", reason)
		return []Outcome{{Name: r.Name, Kind: r.Kind, Action: action, SkipReason: reason, Notified: notified}}, nil
	}

	driver, err := s.dispatcher.DriverFor(r.Kind)
	if err != nil {
		out := Outcome{Name: r.Name, Kind: r.Kind, Action: action, Err: err, Notified: notified}
		return []Outcome{out}, fmt.Errorf("%s %s: %w", r.Kind, r.Name, err)
	}

	result, err := driver.Apply(ctx, s.env, r, action)
	out := Outcome{Name: r.Name, Kind: r.Kind, Action: action, WasUpdated: result.WasUpdated, SkipReason: result.SkipReason, Err: err, Notified: notified}
	if err != nil {
		if r.Common.IgnoreFailure {
			lg.Warn("apply failed, ignored", "err", err)
			out.Err = nil
			return []Outcome{out}, nil
		}
		lg.Error("apply failed", "err", err)
		return []Outcome{out}, fmt.Errorf("%s %s: %w", r.Kind, r.Name, err)
	}

	outcomes := []Outcome{out}
	if result.WasUpdated {
		lg.Info("updated", "action", action)
		notifyOutcomes, nerr := s.dispatchNotifications(ctx, r)
		outcomes = append(outcomes, notifyOutcomes...)
		if nerr != nil {
			return outcomes, nerr
		}
	}
	return outcomes, nil
}

// dispatchNotifications fans r's Notifications out: Immediate ones apply
// their target right now, nested inside this call, before the notifier's
// own apply step returns; Delayed ones are deduped into the run-wide queue.
// It stops and returns the first error an immediate notification's apply
// produces, without dispatching the notifications after it.
func (s *Scheduler) dispatchNotifications(ctx context.Context, r *resource.Record) ([]Outcome, error) {
	var outcomes []Outcome
	for _, n := range r.Common.Notifications {
		target, ok := s.byName[n.Target]
		if !ok {
			continue
		}
		switch resource.NormalizeTiming(string(n.Timing)) {
		case resource.Immediate:
			batch, err := s.applyOne(ctx, target, n.Action, true)
			outcomes = append(outcomes, batch...)
			if err != nil {
				return outcomes, err
			}
		default:
			s.delayed.add(n.Target, n.Action)
		}
	}
	return outcomes, nil
}

// maxDelayedFirings bounds how many delayed-notification applies one Run
// will process before giving up, so a cycle of notifications re-queuing
// each other can't spin forever; drainDelayed's own dedup means no single
// (target, action) pair can fire more than once, so this cap can only be
// hit by a chain longer than there are distinct pairs to produce.
func (s *Scheduler) maxDelayedFirings() int {
	n := len(s.records)
	return n*n + 1
}

// drainDelayed replays the delayed-notification queue FIFO until it goes
// empty, including entries queued by the applies it triggers along the way
// — a delayed apply's own notifications can add fresh entries that a
// single drain snapshot would silently miss.
func (s *Scheduler) drainDelayed(ctx context.Context) ([]Outcome, error) {
	var outcomes []Outcome
	limit := s.maxDelayedFirings()
	fired := 0
	for {
		entries := s.delayed.drain()
		if len(entries) == 0 {
			return outcomes, nil
		}
		for _, entry := range entries {
			fired++
			if fired > limit {
				return outcomes, fmt.Errorf("convergence: delayed notifications did not drain after %d firings, possible cycle", limit)
			}
			target, ok := s.byName[entry.target]
			if !ok {
				continue
			}
			batch, err := s.applyOne(ctx, target, entry.action, true)
			outcomes = append(outcomes, batch...)
			if err != nil {
				return outcomes, err
			}
		}
	}
}

// notificationQueue dedups (target, action) pairs while preserving first-
// seen order, bounding delayed dispatch to one fire per pair per run.
type notificationQueue struct {
	seen    map[string]bool
	entries []queueEntry
}

type queueEntry struct {
	target resource.Name
	action string
}

func newNotificationQueue() *notificationQueue {
	return &notificationQueue{seen: make(map[string]bool)}
}

func (q *notificationQueue) add(target resource.Name, action string) {
	key := fmt.Sprintf("%s\x00%s", target, action)
	if q.seen[key] {
		return
	}
	q.seen[key] = true
	q.entries = append(q.entries, queueEntry{target: target, action: action})
}

func (q *notificationQueue) drain() []queueEntry {
	entries := q.entries
	q.entries = nil
	return entries
}
