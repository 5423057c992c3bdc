package script

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNativeInterpreterGuard(t *testing.T) {
	Convey("Guard/InvokeGuard", t, func() {
		in := NewNativeInterpreter()

		Convey("invokes the wrapped func", func() {
			h := in.Guard(func() (bool, error) { return true, nil })
			ok, err := in.InvokeGuard(h)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("propagates the func's error", func() {
			boom := errors.New("boom")
			h := in.Guard(func() (bool, error) { return false, boom })
			_, err := in.InvokeGuard(h)
			So(err, ShouldEqual, boom)
		})

		Convey("rejects a handle that isn't a guard", func() {
			h := in.Block(func() error { return nil })
			_, err := in.InvokeGuard(h)
			So(err, ShouldNotBeNil)
		})

		Convey("rejects a nil handle", func() {
			_, err := in.InvokeGuard(nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestNativeInterpreterBlock(t *testing.T) {
	Convey("Block/InvokeBlock", t, func() {
		in := NewNativeInterpreter()
		var ran bool

		Convey("invokes the wrapped func", func() {
			h := in.Block(func() error { ran = true; return nil })
			So(in.InvokeBlock(h), ShouldBeNil)
			So(ran, ShouldBeTrue)
		})

		Convey("rejects a handle that isn't a block", func() {
			h := in.Guard(func() (bool, error) { return true, nil })
			So(in.InvokeBlock(h), ShouldNotBeNil)
		})
	})
}

func TestNativeInterpreterPinRefcounting(t *testing.T) {
	Convey("Pin/Unpin refcount per distinct callable", t, func() {
		in := NewNativeInterpreter()
		h := in.Guard(func() (bool, error) { return true, nil })

		in.Pin(h)
		in.Pin(h)
		So(in.PinnedCount(), ShouldEqual, 1)

		in.Unpin(h)
		So(in.PinnedCount(), ShouldEqual, 1)

		in.Unpin(h)
		So(in.PinnedCount(), ShouldEqual, 0)
	})

	Convey("Unpin on an unpinned or foreign handle is a no-op", t, func() {
		in := NewNativeInterpreter()
		in.Unpin(nil)
		in.Unpin("not a callable")
		So(in.PinnedCount(), ShouldEqual, 0)
	})
}
