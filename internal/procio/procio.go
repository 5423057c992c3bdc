// Package procio captures and filters subprocess stdout/stderr, the way the
// execute driver needs to: keep everything for debug logging, but collapse
// \r-terminated progress-bar noise when echoing to the terminal.
package procio

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	multierror "github.com/hashicorp/go-multierror"
)

var (
	cr       = []byte("\r")
	lf       = []byte("\n")
	ellipses = []byte("[...]\n")
)

// PrefixSuffixSaver is an io.Writer which retains only the first N and last
// N bytes written to it, for bounding how much of a command's output we
// keep in memory for error messages. Adapted from the unexported type of
// the same name in the standard library's os/exec package.
type PrefixSuffixSaver struct {
	N         int
	prefix    []byte
	suffix    []byte
	suffixOff int
	skipped   int64
}

func (w *PrefixSuffixSaver) Write(p []byte) (int, error) {
	lenp := len(p)
	p = w.fill(&w.prefix, p)

	if overage := len(p) - w.N; overage > 0 {
		p = p[overage:]
		w.skipped += int64(overage)
	}
	p = w.fill(&w.suffix, p)
	for len(p) > 0 {
		n := copy(w.suffix[w.suffixOff:], p)
		p = p[n:]
		w.skipped += int64(n)
		w.suffixOff += n
		if w.suffixOff == w.N {
			w.suffixOff = 0
		}
	}
	return lenp, nil
}

func (w *PrefixSuffixSaver) fill(dst *[]byte, p []byte) []byte {
	if remain := w.N - len(*dst); remain > 0 {
		add := min(len(p), remain)
		*dst = append(*dst, p[:add]...)
		p = p[add:]
	}
	return p
}

// Bytes reconstructs the saved prefix/suffix into a single byte slice,
// noting how many bytes were omitted in the middle.
func (w *PrefixSuffixSaver) Bytes() []byte {
	if w.suffix == nil {
		return w.prefix
	}
	if w.skipped == 0 {
		return append(w.prefix, w.suffix...)
	}
	var buf bytes.Buffer
	buf.Grow(len(w.prefix) + len(w.suffix) + 50)
	buf.Write(w.prefix)
	buf.WriteString("\n... omitting ")
	buf.WriteString(strconv.FormatInt(w.skipped, 10))
	buf.WriteString(" bytes ...\n")
	buf.Write(w.suffix[w.suffixOff:])
	buf.Write(w.suffix[:w.suffixOff])
	return buf.Bytes()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// StdFilter copies std to out line by line, collapsing contiguous blocks of
// \r-terminated lines down to their first and last line (eliminating
// progress-bar spam) while a command streams live. It returns a channel
// that yields the first write error encountered, or nil, once std is
// exhausted.
func StdFilter(std io.Reader, out io.Writer) chan error {
	reader := bufio.NewReader(std)
	done := make(chan error, 1)
	go func() {
		var merr *multierror.Error
		for {
			p, err := reader.ReadBytes('\n')

			lines := bytes.Split(p, cr)
			if _, errw := out.Write(lines[0]); errw != nil {
				merr = multierror.Append(merr, errw)
			}
			if len(lines) > 2 {
				// the last line of the block is the final segment, unless
				// that segment is only the terminating newline
				last := len(lines) - 1
				if len(bytes.TrimSuffix(lines[last], lf)) == 0 {
					last--
				}
				if _, errw := out.Write(lf); errw != nil {
					merr = multierror.Append(merr, errw)
				}
				if last > 1 {
					if _, errw := out.Write(ellipses); errw != nil {
						merr = multierror.Append(merr, errw)
					}
				}
				if _, errw := out.Write(bytes.TrimSuffix(lines[last], lf)); errw != nil {
					merr = multierror.Append(merr, errw)
				}
				if _, errw := out.Write(lf); errw != nil {
					merr = multierror.Append(merr, errw)
				}
			}

			if err != nil {
				break
			}
		}
		done <- merr.ErrorOrNil()
	}()
	return done
}
