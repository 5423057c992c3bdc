package pkgmanager

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRefs(t *testing.T) {
	Convey("refs", t, func() {
		Convey("with no version, names pass through unchanged", func() {
			So(refs([]string{"redis", "nginx"}, ""), ShouldResemble, []string{"redis", "nginx"})
		})

		Convey("with a version, every name gets a :version tag", func() {
			So(refs([]string{"redis", "nginx"}, "alpine"), ShouldResemble, []string{"redis:alpine", "nginx:alpine"})
		})
	})
}
