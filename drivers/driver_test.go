package drivers

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorMessages(t *testing.T) {
	Convey("CommandFailedError", t, func() {
		e := &CommandFailedError{Command: "apt-get install x", ExitCode: 100, Stderr: "E: bad"}
		So(e.Error(), ShouldContainSubstring, "exit 100")
		So(e.Error(), ShouldContainSubstring, "apt-get install x")
	})

	Convey("CommandKilledError", t, func() {
		e := &CommandKilledError{Command: "sleep 100", Signal: "killed"}
		So(e.Error(), ShouldContainSubstring, "killed")
	})

	Convey("PackageError wraps and unwraps", t, func() {
		wrapped := errors.New("exit status 1")
		e := &PackageError{Op: "InstallFailed", Names: []string{"curl", "jq"}, Wrapped: wrapped}
		So(e.Error(), ShouldContainSubstring, "curl, jq")
		So(errors.Unwrap(e), ShouldEqual, wrapped)
	})

	Convey("RubyBlockFailedError wraps and unwraps", t, func() {
		wrapped := errors.New("boom")
		e := &RubyBlockFailedError{Name: "restart", Wrapped: wrapped}
		So(e.Error(), ShouldContainSubstring, "restart")
		So(errors.Unwrap(e), ShouldEqual, wrapped)
	})

	Convey("NotFoundError", t, func() {
		e := &NotFoundError{What: "package", Name: "curl"}
		So(e.Error(), ShouldEqual, "package not found: curl")
	})
}

func TestItoa(t *testing.T) {
	Convey("itoa", t, func() {
		So(itoa(0), ShouldEqual, "0")
		So(itoa(42), ShouldEqual, "42")
		So(itoa(-7), ShouldEqual, "-7")
	})
}

func TestJoinNames(t *testing.T) {
	Convey("joinNames", t, func() {
		So(joinNames(nil), ShouldEqual, "")
		So(joinNames([]string{"a"}), ShouldEqual, "a")
		So(joinNames([]string{"a", "b", "c"}), ShouldEqual, "a, b, c")
	})
}
