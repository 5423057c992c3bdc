package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRunWait(t *testing.T) {
	Convey("Run/Wait", t, func() {
		e := NewExecutor(0)

		Convey("returns the job's result", func() {
			h := Run(e, "test.ok", func(ctx context.Context) (int, error) {
				return 42, nil
			})
			v, err := h.Wait(context.Background())
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 42)
		})

		Convey("returns the job's error", func() {
			boom := errors.New("boom")
			h := Run(e, "test.err", func(ctx context.Context) (int, error) {
				return 0, boom
			})
			_, err := h.Wait(context.Background())
			So(err, ShouldEqual, boom)
		})

		Convey("Wait returns ctx.Err() if the caller's context is cancelled first", func() {
			started := make(chan struct{})
			release := make(chan struct{})
			h := Run(e, "test.slow", func(ctx context.Context) (int, error) {
				close(started)
				<-release
				return 1, nil
			})
			<-started

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := h.Wait(ctx)
			So(err, ShouldEqual, context.Canceled)

			close(release)
			<-h.done // drain so the worker goroutine doesn't leak past the test
		})

		Convey("Done reports completion without blocking", func() {
			release := make(chan struct{})
			h := Run(e, "test.done", func(ctx context.Context) (int, error) {
				<-release
				return 1, nil
			})
			So(h.Done(), ShouldBeFalse)
			close(release)
			_, _ = h.Wait(context.Background())
			So(h.Done(), ShouldBeTrue)
		})
	})
}

func TestConcurrentRunsWithTheSameLabelDontRace(t *testing.T) {
	Convey("many concurrent jobs sharing a latency label", t, func() {
		e := NewExecutor(0)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h := Run(e, "test.concurrent", func(ctx context.Context) (int, error) {
					return 1, nil
				})
				_, _ = h.Wait(context.Background())
			}()
		}
		wg.Wait()
		So(e.meanLatency("test.concurrent"), ShouldBeGreaterThanOrEqualTo, 0)
	})
}

func TestHeartbeatEmitsACompletionTick(t *testing.T) {
	Convey("Heartbeat reports a Done=true tick when a job finishes", t, func() {
		e := NewExecutor(0)
		h := Run(e, "test.heartbeat", func(ctx context.Context) (int, error) {
			return 1, nil
		})
		_, _ = h.Wait(context.Background())

		deadline := time.After(2 * time.Second)
		for {
			select {
			case p := <-e.Heartbeat():
				if p.JobID == h.ID() && p.Done {
					So(p.Err, ShouldBeNil)
					return
				}
			case <-deadline:
				t.Fatal("timed out waiting for completion heartbeat")
			}
		}
	})
}
