package logger

import (
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/inconshreveable/log15"

	. "github.com/smartystreets/goconvey/convey"
)

func TestColourHandler(t *testing.T) {
	Convey("colourHandler", t, func() {
		prior := color.NoColor
		color.NoColor = false
		defer func() { color.NoColor = prior }()

		var captured *log15.Record
		base := log15.FuncHandler(func(r *log15.Record) error {
			captured = r
			return nil
		})
		h := colourHandler(base)

		Convey("error-level messages are wrapped in red", func() {
			So(h.Log(&log15.Record{Lvl: log15.LvlError, Msg: "boom"}), ShouldBeNil)
			So(captured.Msg, ShouldContainSubstring, "boom")
			So(captured.Msg, ShouldNotEqual, "boom")
		})

		Convey("warn-level messages are wrapped in yellow", func() {
			So(h.Log(&log15.Record{Lvl: log15.LvlWarn, Msg: "careful"}), ShouldBeNil)
			So(captured.Msg, ShouldContainSubstring, "careful")
			So(captured.Msg, ShouldNotEqual, "careful")
		})

		Convey("info-level messages pass through unchanged", func() {
			So(h.Log(&log15.Record{Lvl: log15.LvlInfo, Msg: "fyi"}), ShouldBeNil)
			So(captured.Msg, ShouldEqual, "fyi")
		})
	})
}

func TestForRecord(t *testing.T) {
	Convey("ForRecord scopes a child logger to a kind/resource pair", t, func() {
		var captured *log15.Record
		base := log15.New("app", "hola")
		base.SetHandler(log15.FuncHandler(func(r *log15.Record) error {
			captured = r
			return nil
		}))

		child := ForRecord(base, "file", "motd")
		child.Info("applied")

		So(captured, ShouldNotBeNil)
		ctx := captured.Ctx
		So(ctx, ShouldContain, "kind")
		So(ctx, ShouldContain, "file")
		So(ctx, ShouldContain, "resource")
		So(ctx, ShouldContain, "motd")
	})
}

func TestIsTerminal(t *testing.T) {
	Convey("a regular file is not a terminal", t, func() {
		f, err := os.CreateTemp("", "hola-logger-test")
		So(err, ShouldBeNil)
		defer os.Remove(f.Name())
		defer f.Close()
		So(isTerminal(f), ShouldBeFalse)
	})
}
