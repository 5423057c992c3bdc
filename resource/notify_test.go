package resource

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeTiming(t *testing.T) {
	Convey("NormalizeTiming", t, func() {
		Convey("passes immediate through", func() {
			So(NormalizeTiming("immediate"), ShouldEqual, Immediate)
		})
		Convey("maps delayed through", func() {
			So(NormalizeTiming("delayed"), ShouldEqual, Delayed)
		})
		Convey("maps anything else to delayed", func() {
			So(NormalizeTiming(""), ShouldEqual, Delayed)
			So(NormalizeTiming("bogus"), ShouldEqual, Delayed)
		})
	})
}
