package fslm

// ARPA file parsing routine. The parser is a chain of steps; each step
// looks at one line and tells which step handles the next line and
// whether it consumed the current one.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

type arpaStep interface {
	// Next consumes line (or not) and returns the step for the
	// following line. A nil step means the input must end here.
	Next(line []byte) (next arpaStep, consumed bool, err error)
	// Expect describes what the step is waiting for; it is reported
	// when the input ends early.
	Expect() string
}

func errExpect(what string) error {
	return errors.New("expect " + what)
}

// parseARPA runs the ARPA grammar over in and adds all the n-gram
// entries to builder.
func parseARPA(in io.Reader, builder *Builder) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(lineSplit)
	var step arpaStep = arpaTop{builder}
	lineNo := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		lineNo++
		if len(line) == 0 {
			continue
		}
		for consumed := false; !consumed; {
			if step == nil {
				return errors.Errorf("line %d: expect end of file", lineNo)
			}
			var err error
			if step, consumed, err = step.Next(line); err != nil {
				return errors.Wrapf(err, "line %d", lineNo)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "reading ARPA")
	}
	if step != nil {
		return errors.Wrap(errExpect(step.Expect()), "unexpected end of file")
	}
	return nil
}

// arpaTop expects the `\data\` line.
type arpaTop struct {
	builder *Builder
}

func (it arpaTop) Expect() string { return `\data\` }
func (it arpaTop) Next(line []byte) (arpaStep, bool, error) {
	if string(line) != `\data\` {
		return nil, false, errExpect(`\data\`)
	}
	return skipNgramCounts{it.builder}, true, nil
}

// skipNgramCounts skips the n-gram-count section.
type skipNgramCounts struct {
	builder *Builder
}

func (it skipNgramCounts) Expect() string { return `\N-grams:` }
func (it skipNgramCounts) Next(line []byte) (arpaStep, bool, error) {
	if line[0] == '\\' {
		return ngramSection{it.builder}, false, nil
	}
	return it, true, nil
}

// ngramSection starts one n-gram section or finishes the file.
type ngramSection struct {
	builder *Builder
}

func (it ngramSection) Expect() string { return `\N-grams: or \end\` }
func (it ngramSection) Next(line []byte) (arpaStep, bool, error) {
	if string(line) == `\end\` {
		return nil, true, nil
	}
	if line[0] != '\\' || !bytes.HasSuffix(line, []byte("-grams:")) {
		return nil, false, errExpect(`section header "\N-grams:"`)
	}
	n, err := strconv.Atoi(string(line[1 : len(line)-len("-grams:")]))
	if err != nil || n <= 0 {
		return nil, false, errExpect(`positive integer in section header "\N-grams:"`)
	}
	return newNgramEntries(n, it.builder), true, nil
}

// ngramEntries scans 0 or more n-gram entries of the given order and
// add them to the builder.
type ngramEntries struct {
	builder *Builder
	n       int
	// These are for avoiding repeated space allocation.
	p, bow  Weight
	context []string
	word    string
}

// newNgramEntries constructs a new ngramEntries with properly
// initialized stub data.
func newNgramEntries(n int, b *Builder) *ngramEntries {
	return &ngramEntries{b, n, 0, 0, make([]string, n-1), ""}
}

func (it *ngramEntries) Expect() string { return `\end\` }
func (it *ngramEntries) Next(line []byte) (arpaStep, bool, error) {
	if line[0] == '\\' {
		glog.Infof("%d-gram done", it.n)
		return ngramSection{it.builder}, false, nil
	}
	if err := it.setParts(line); err != nil {
		return nil, false, err
	}
	if err := it.builder.AddNgram(it.context, it.word, it.p, it.bow); err != nil {
		return nil, false, err
	}
	return it, true, nil
}

func (it *ngramEntries) setParts(line []byte) error {
	// p
	x, xs := tokenSplit(line)
	if x == "" {
		return errExpect("log-probability")
	}
	if f, err := strconv.ParseFloat(x, WEIGHT_SIZE); err != nil {
		return err
	} else {
		it.p = Weight(f)
	}
	// context
	for i := 1; i < it.n; i++ {
		x, xs = tokenSplit(xs)
		if x == "" {
			return errExpect(fmt.Sprintf("%d context word(s)", it.n))
		}
		it.context[i-1] = x
	}
	// word
	x, xs = tokenSplit(xs)
	if x == "" {
		return errExpect("word")
	}
	it.word = x
	// bow
	x, xs = tokenSplit(xs)
	if x == "" {
		it.bow = 0
	} else if f, err := strconv.ParseFloat(x, WEIGHT_SIZE); err == nil {
		it.bow = Weight(f)
	} else {
		return err
	}
	// no extra stuff
	if len(xs) != 0 {
		return errExpect("end of line")
	}
	return nil
}

// Low-level lexer code.

func isSpace(b byte) bool {
	switch b {
	case '\t', '\v', '\f', '\r', ' ':
		return true
	default:
		return false
	}
}

// lineSplit yields every physical line, including empty ones, with
// surrounding spaces trimmed.
func lineSplit(data []byte, atEOF bool) (int, []byte, error) {
	advance, line, err := bufio.ScanLines(data, atEOF)
	if line == nil {
		return advance, nil, err
	}
	l, r := 0, len(line)
	for l < r && isSpace(line[l]) {
		l++
	}
	for r > l && isSpace(line[r-1]) {
		r--
	}
	return advance, line[l:r], err
}

func tokenSplit(line []byte) (string, []byte) {
	// Assuming line has no leading space.
	r := -1
	for i, b := range line {
		if isSpace(b) {
			r = i
			break
		}
	}
	if r < 0 {
		r = len(line)
	}
	token := string(line[:r])
	// Skip trailing spaces.
	for i, b := range line[r:] {
		if !isSpace(b) {
			return token, line[r+i:]
		}
	}
	return token, nil
}
