package procio

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPrefixSuffixSaver(t *testing.T) {
	Convey("PrefixSuffixSaver", t, func() {
		Convey("keeps everything when under N bytes", func() {
			w := &PrefixSuffixSaver{N: 1024}
			_, err := w.Write([]byte("hello world"))
			So(err, ShouldBeNil)
			So(string(w.Bytes()), ShouldEqual, "hello world")
		})

		Convey("keeps only the first and last N bytes, noting what was omitted", func() {
			w := &PrefixSuffixSaver{N: 4}
			_, err := w.Write([]byte("0123456789"))
			So(err, ShouldBeNil)
			out := string(w.Bytes())
			So(out, ShouldStartWith, "0123")
			So(out, ShouldEndWith, "6789")
			So(out, ShouldContainSubstring, "omitting")
		})

		Convey("handles writes spread across multiple calls", func() {
			w := &PrefixSuffixSaver{N: 4}
			w.Write([]byte("01"))
			w.Write([]byte("23"))
			w.Write([]byte("456789"))
			out := string(w.Bytes())
			So(out, ShouldStartWith, "0123")
			So(out, ShouldEndWith, "6789")
		})
	})
}

func TestStdFilterCollapsesCarriageReturnSpam(t *testing.T) {
	Convey("StdFilter passes ordinary lines through unchanged", t, func() {
		in := bytes.NewBufferString("line one\nline two\n")
		var out bytes.Buffer
		done := StdFilter(in, &out)
		So(<-done, ShouldBeNil)
		So(out.String(), ShouldContainSubstring, "line one")
		So(out.String(), ShouldContainSubstring, "line two")
	})

	Convey("StdFilter collapses a long run of \\r-terminated progress lines", t, func() {
		var progress bytes.Buffer
		progress.WriteString("0%\r25%\r50%\r75%\r100%\n")
		var out bytes.Buffer
		done := StdFilter(&progress, &out)
		So(<-done, ShouldBeNil)
		So(out.String(), ShouldContainSubstring, "[...]")
		So(out.String(), ShouldContainSubstring, "0%")
		So(out.String(), ShouldContainSubstring, "100%")
	})
}
