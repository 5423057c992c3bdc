package convergence

import (
	"context"
	"fmt"
	"testing"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/resource"
	"github.com/ratazzi/hola/script"
)

// fakeDriver always reports the given update outcome, counting how many
// times each (name, action) pair was applied. updatesForAction, keyed by
// "name:action", overrides updates when a test needs a record to report
// updated only for one specific action.
type fakeDriver struct {
	updates          map[resource.Name]bool
	updatesForAction map[string]bool
	calls            []string
	fail             map[resource.Name]bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		updates:          make(map[resource.Name]bool),
		updatesForAction: make(map[string]bool),
		fail:             make(map[resource.Name]bool),
	}
}

func (d *fakeDriver) Apply(ctx context.Context, env *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	d.calls = append(d.calls, fmt.Sprintf("%s:%s", rec.Name, action))
	if d.fail[rec.Name] {
		return resource.ApplyResult{}, fmt.Errorf("simulated failure for %s", rec.Name)
	}
	if updated, ok := d.updatesForAction[fmt.Sprintf("%s:%s", rec.Name, action)]; ok {
		if updated {
			return resource.Updated(action), nil
		}
		return resource.NoUpdate(action, "no change"), nil
	}
	if d.updates[rec.Name] {
		return resource.Updated(action), nil
	}
	return resource.NoUpdate(action, "no change"), nil
}

type fakeDispatcher struct{ driver drivers.Driver }

func (d fakeDispatcher) DriverFor(kind resource.Kind) (drivers.Driver, error) { return d.driver, nil }

func newTestScheduler(driver *fakeDriver) *Scheduler {
	return New("/bin/sh", log15.New(), script.NewNativeInterpreter(), fakeDispatcher{driver: driver}, &drivers.Env{})
}

func rec(name resource.Name) *resource.Record {
	return &resource.Record{Kind: resource.KindFile, Name: name, File: &resource.FileProps{Action: "create"}}
}

func TestSchedulerRunAppliesInDeclarationOrder(t *testing.T) {
	Convey("Run applies every record once in declaration order", t, func() {
		driver := newFakeDriver()
		sched := newTestScheduler(driver)

		records := []*resource.Record{rec("a"), rec("b"), rec("c")}
		outcomes, err := sched.Run(context.Background(), records)
		So(err, ShouldBeNil)
		So(len(outcomes), ShouldEqual, 3)
		So(driver.calls, ShouldResemble, []string{"a:create", "b:create", "c:create"})
	})
}

func TestSchedulerImmediateNotification(t *testing.T) {
	Convey("an immediate notification fires synchronously within the notifier's apply", t, func() {
		driver := newFakeDriver()
		driver.updates["notifier"] = true
		sched := newTestScheduler(driver)

		target := rec("target")
		notifier := rec("notifier")
		notifier.Common.Notifications = []resource.Notification{{Target: "target", Action: "restart", Timing: resource.Immediate}}

		outcomes, err := sched.Run(context.Background(), []*resource.Record{target, notifier})
		So(err, ShouldBeNil)

		So(driver.calls, ShouldResemble, []string{"target:create", "notifier:create", "target:restart"})

		var sawNotified bool
		for _, o := range outcomes {
			if o.Notified && o.Name == "target" && o.Action == "restart" {
				sawNotified = true
			}
		}
		So(sawNotified, ShouldBeTrue)
	})
}

func TestSchedulerDelayedNotificationFiresOnceAfterMainPass(t *testing.T) {
	Convey("delayed notifications drain once, after the whole declaration-order pass", t, func() {
		driver := newFakeDriver()
		driver.updates["notifier1"] = true
		driver.updates["notifier2"] = true
		sched := newTestScheduler(driver)

		target := rec("target")
		notifier1 := rec("notifier1")
		notifier1.Common.Notifications = []resource.Notification{{Target: "target", Action: "restart", Timing: resource.Delayed}}
		notifier2 := rec("notifier2")
		notifier2.Common.Notifications = []resource.Notification{{Target: "target", Action: "restart", Timing: resource.Delayed}}

		_, err := sched.Run(context.Background(), []*resource.Record{target, notifier1, notifier2})
		So(err, ShouldBeNil)

		restartCount := 0
		for _, c := range driver.calls {
			if c == "target:restart" {
				restartCount++
			}
		}
		So(restartCount, ShouldEqual, 1)
		// the main pass for target/notifier1/notifier2 happens before the
		// single deduped delayed restart
		So(driver.calls[len(driver.calls)-1], ShouldEqual, "target:restart")
	})
}

func TestSchedulerSubscriptionSynthesizesNotification(t *testing.T) {
	Convey("a subscribes_to edge is equivalent to a notification declared on the source", t, func() {
		driver := newFakeDriver()
		driver.updates["source"] = true
		sched := newTestScheduler(driver)

		source := rec("source")
		subscriber := rec("subscriber")
		subscriber.Common.Subscriptions = []resource.Subscription{{Source: "source", Action: "reload", Timing: resource.Immediate}}

		_, err := sched.Run(context.Background(), []*resource.Record{source, subscriber})
		So(err, ShouldBeNil)
		So(driver.calls, ShouldContain, "subscriber:reload")
	})
}

func TestSchedulerIgnoreFailureClearsTheError(t *testing.T) {
	Convey("ignore_failure logs but does not fail the outcome, and the run continues", t, func() {
		driver := newFakeDriver()
		driver.fail["flaky"] = true
		sched := newTestScheduler(driver)

		flaky := rec("flaky")
		flaky.Common.IgnoreFailure = true
		after := rec("after")

		outcomes, err := sched.Run(context.Background(), []*resource.Record{flaky, after})
		So(err, ShouldBeNil)
		So(outcomes[0].Err, ShouldBeNil)
		So(driver.calls, ShouldResemble, []string{"flaky:create", "after:create"})
	})

	Convey("without ignore_failure, Run aborts and surfaces the error", t, func() {
		driver := newFakeDriver()
		driver.fail["flaky"] = true
		sched := newTestScheduler(driver)

		after := rec("after")
		outcomes, err := sched.Run(context.Background(), []*resource.Record{rec("flaky"), after})
		So(err, ShouldNotBeNil)
		So(outcomes, ShouldHaveLength, 1)
		So(outcomes[0].Err, ShouldNotBeNil)
		So(driver.calls, ShouldResemble, []string{"flaky:create"})
	})
}

func TestSchedulerImmediateNotificationFailureAbortsTheRun(t *testing.T) {
	Convey("a failing immediate notification stops the run before its siblings fire", t, func() {
		driver := newFakeDriver()
		driver.updates["notifier"] = true
		driver.fail["target"] = true
		sched := newTestScheduler(driver)

		target := rec("target")
		sibling := rec("sibling")
		notifier := rec("notifier")
		notifier.Common.Notifications = []resource.Notification{
			{Target: "target", Action: "restart", Timing: resource.Immediate},
			{Target: "sibling", Action: "restart", Timing: resource.Immediate},
		}

		_, err := sched.Run(context.Background(), []*resource.Record{target, sibling, notifier})
		So(err, ShouldNotBeNil)
		So(driver.calls, ShouldResemble, []string{"target:create", "sibling:create", "notifier:create", "target:restart"})
	})
}

func TestSchedulerDelayedNotificationsFullyDrainIncludingChained(t *testing.T) {
	Convey("a notification queued by a delayed apply is itself drained before Run returns", t, func() {
		driver := newFakeDriver()
		driver.updates["notifier1"] = true
		driver.updates["notifier2"] = true
		driver.updatesForAction["target:restart"] = true
		sched := newTestScheduler(driver)

		downstream := rec("downstream")
		target := rec("target")
		target.Common.Notifications = []resource.Notification{{Target: "downstream", Action: "reload", Timing: resource.Delayed}}
		notifier1 := rec("notifier1")
		notifier1.Common.Notifications = []resource.Notification{{Target: "target", Action: "restart", Timing: resource.Delayed}}
		notifier2 := rec("notifier2")
		notifier2.Common.Notifications = []resource.Notification{{Target: "target", Action: "restart", Timing: resource.Delayed}}

		_, err := sched.Run(context.Background(), []*resource.Record{downstream, target, notifier1, notifier2})
		So(err, ShouldBeNil)

		So(driver.calls, ShouldContain, "target:restart")
		So(driver.calls, ShouldContain, "downstream:reload")
		// downstream:reload can only have been queued while draining
		// target:restart, so it must come after it.
		var restartIdx, reloadIdx int
		for i, c := range driver.calls {
			if c == "target:restart" {
				restartIdx = i
			}
			if c == "downstream:reload" {
				reloadIdx = i
			}
		}
		So(reloadIdx, ShouldBeGreaterThan, restartIdx)
	})
}

func TestSchedulerGuardSkipsApply(t *testing.T) {
	Convey("a false only_if guard skips the driver entirely", t, func() {
		driver := newFakeDriver()
		sched := newTestScheduler(driver)

		skipped := rec("skipped")
		skipped.Common.OnlyIf = resource.Guard{Command: "false"}

		outcomes, err := sched.Run(context.Background(), []*resource.Record{skipped})
		So(err, ShouldBeNil)
		So(driver.calls, ShouldBeEmpty)
		So(outcomes[0].SkipReason, ShouldContainSubstring, "only_if")
	})
}
