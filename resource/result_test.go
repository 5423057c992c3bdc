package resource

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestApplyResultHelpers(t *testing.T) {
	Convey("NoUpdate", t, func() {
		r := NoUpdate("create", "content already matches")
		So(r.WasUpdated, ShouldBeFalse)
		So(r.Action, ShouldEqual, "create")
		So(r.SkipReason, ShouldEqual, "content already matches")
	})

	Convey("Updated", t, func() {
		r := Updated("create")
		So(r.WasUpdated, ShouldBeTrue)
		So(r.Action, ShouldEqual, "create")
		So(r.SkipReason, ShouldEqual, "")
	})
}
