package rubyblock

import (
	"context"
	"errors"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/resource"
	"github.com/ratazzi/hola/script"
)

func TestApplyInvokesCallable(t *testing.T) {
	Convey("a ruby_block invokes its callable and always reports an update", t, func() {
		interp := script.NewNativeInterpreter()
		ran := false
		callable := interp.Block(func() error { ran = true; return nil })
		defer interp.Unpin(callable)

		d := New()
		env := &drivers.Env{Interpreter: interp}
		rec := &resource.Record{Kind: resource.KindRubyBlock, Name: "greet", RubyBlock: &resource.RubyBlockProps{Callable: callable}}

		res, err := d.Apply(context.Background(), env, rec, "run")
		So(err, ShouldBeNil)
		So(ran, ShouldBeTrue)
		So(res.WasUpdated, ShouldBeTrue)
	})
}

func TestApplyActionNothingSkipsTheCallable(t *testing.T) {
	Convey("action=nothing never invokes the callable", t, func() {
		interp := script.NewNativeInterpreter()
		ran := false
		callable := interp.Block(func() error { ran = true; return nil })
		defer interp.Unpin(callable)

		d := New()
		env := &drivers.Env{Interpreter: interp}
		rec := &resource.Record{Kind: resource.KindRubyBlock, Name: "greet", RubyBlock: &resource.RubyBlockProps{Callable: callable}}

		res, err := d.Apply(context.Background(), env, rec, "nothing")
		So(err, ShouldBeNil)
		So(ran, ShouldBeFalse)
		So(res.WasUpdated, ShouldBeFalse)
	})
}

func TestApplyWrapsCallableFailure(t *testing.T) {
	Convey("a failing callable surfaces as a RubyBlockFailedError", t, func() {
		interp := script.NewNativeInterpreter()
		callable := interp.Block(func() error { return errors.New("boom") })
		defer interp.Unpin(callable)

		d := New()
		env := &drivers.Env{Interpreter: interp}
		rec := &resource.Record{Kind: resource.KindRubyBlock, Name: "greet", RubyBlock: &resource.RubyBlockProps{Callable: callable}}

		_, err := d.Apply(context.Background(), env, rec, "run")
		So(err, ShouldNotBeNil)
		rbfe, ok := err.(*drivers.RubyBlockFailedError)
		So(ok, ShouldBeTrue)
		So(rbfe.Name, ShouldEqual, "greet")
		So(errors.Unwrap(rbfe), ShouldNotBeNil)
	})
}

func TestSetenvAppliesAndRestores(t *testing.T) {
	Convey("setenv applies pairs and the returned closure restores prior state", t, func() {
		const key = "HOLA_RUBYBLOCK_TEST_VAR"

		Convey("restores an unset variable back to unset", func() {
			_ = os.Unsetenv(key)
			restore := setenv([]string{key + "=injected"})
			So(os.Getenv(key), ShouldEqual, "injected")
			restore()
			_, ok := os.LookupEnv(key)
			So(ok, ShouldBeFalse)
		})

		Convey("restores a previously set variable to its old value", func() {
			So(os.Setenv(key, "original"), ShouldBeNil)
			restore := setenv([]string{key + "=injected"})
			So(os.Getenv(key), ShouldEqual, "injected")
			restore()
			So(os.Getenv(key), ShouldEqual, "original")
			_ = os.Unsetenv(key)
		})
	})
}
