package drivers

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ratazzi/hola/resource"
)

type noopDriver struct{}

func (noopDriver) Apply(ctx context.Context, env *Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	return resource.NoUpdate(action, "noop"), nil
}

func TestSetDriverFor(t *testing.T) {
	Convey("NewSet/DriverFor", t, func() {
		set := NewSet(map[resource.Kind]Driver{resource.KindFile: noopDriver{}})

		Convey("resolves a registered kind", func() {
			d, err := set.DriverFor(resource.KindFile)
			So(err, ShouldBeNil)
			So(d, ShouldNotBeNil)
		})

		Convey("errors on an unregistered kind", func() {
			_, err := set.DriverFor(resource.KindGit)
			So(err, ShouldNotBeNil)
		})

		Convey("panics if constructed with a nil driver", func() {
			So(func() {
				NewSet(map[resource.Kind]Driver{resource.KindFile: nil})
			}, ShouldPanic)
		})
	})
}
