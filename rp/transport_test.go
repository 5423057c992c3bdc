package rp

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTransportLimitersForURL(t *testing.T) {
	Convey("ForURL", t, func() {
		limiters := NewTransportLimiters(2, time.Minute)

		Convey("returns the same Protector for the same host", func() {
			a := limiters.ForURL("https://example.test/a/b")
			b := limiters.ForURL("https://example.test/c/d")
			So(a, ShouldEqual, b)
			So(a.Name, ShouldEqual, "example.test")
		})

		Convey("returns distinct Protectors for distinct hosts", func() {
			a := limiters.ForURL("https://one.test/a")
			b := limiters.ForURL("https://two.test/a")
			So(a, ShouldNotEqual, b)
		})

		Convey("falls back to the raw string when it doesn't parse as a URL with a host", func() {
			a := limiters.ForURL("relative/path")
			b := limiters.ForHost("relative/path")
			So(a, ShouldEqual, b)
		})

		Convey("passes its own releaseTimeout through to each Protector it creates", func() {
			p := limiters.ForHost("example.test")
			So(p.releaseTimeout, ShouldEqual, time.Minute)
		})
	})
}
