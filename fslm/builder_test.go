package fslm

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddNgramErrors(t *testing.T) {
	long := make([]string, maxContext+1)
	for i := range long {
		long[i] = "a"
	}
	for _, i := range []struct {
		Context []string
		Word    string
	}{
		{[]string{EOS}, "a"},
		{[]string{"a", EOS}, "b"},
		{[]string{"a", BOS}, "b"},
		{long, "a"},
	} {
		if err := NewBuilder().AddNgram(i.Context, i.Word, -1, 0); err == nil {
			t.Errorf("%q %q: expected error", i.Context, i.Word)
		}
	}
	if err := NewBuilder().AddNgram(long[1:], "a", -1, 0); err != nil {
		t.Errorf("unexpected error for a context of %d words: %v", maxContext, err)
	}
}

func TestAddNgramLog0(t *testing.T) {
	builder := readyBuilder([]ngram{
		{"", "<s>", -99, -1},
		{"", "</s>", -1, 0},
		{"", "a", -100, 0},
	})
	model := builder.DumpSorted()
	if _, w := model.NextS(model.Start(), "a"); w != WEIGHT_LOG0 {
		t.Errorf("expected %g; got %g", WEIGHT_LOG0, w)
	}
}

func TestWriteDot(t *testing.T) {
	for _, model := range []Backend{
		readyBuilder(simpleTrigramLM).DumpHashed(0),
		readyBuilder(simpleTrigramLM).DumpSorted(),
	} {
		var buf bytes.Buffer
		if err := WriteDot(model, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		dot := buf.String()
		if !strings.HasPrefix(dot, "digraph fslm {\n") || !strings.HasSuffix(dot, "}\n") {
			t.Errorf("expected a digraph; got\n%s", dot)
		}
		// Every state but _STATE_EMPTY backs off.
		if n := strings.Count(dot, "style=dashed"); n != model.NumStates()-1 {
			t.Errorf("expected %d back-off edges; got %d", model.NumStates()-1, n)
		}
		if !strings.Contains(dot, `-> final [label="</s> : -0.001"]`) {
			t.Errorf("expected a final transition for a b </s>; got\n%s", dot)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errFailingWriter }

var errFailingWriter = bytes.ErrTooLarge

func TestWriteDotError(t *testing.T) {
	if err := WriteDot(readyBuilder(simpleTrigramLM).DumpSorted(), failingWriter{}); err != errFailingWriter {
		t.Errorf("expected %v; got %v", errFailingWriter, err)
	}
}

func TestXqwMap(t *testing.T) {
	m := newXqwMap()
	const n = 1000
	for i := 0; i < n; i++ {
		m.Set(WordId(i*7), StateWeight{StateId(i), Weight(-i)})
	}
	// Overwriting keeps the size.
	m.Set(0, StateWeight{42, -1})
	if s := m.Size(); s != n {
		t.Errorf("expected %d keys; got %d", n, s)
	}
	if float64(m.Size()) > maxXqwLoad*float64(len(m.buckets)) {
		t.Errorf("expected load at most %g; got %d keys in %d buckets", maxXqwLoad, m.Size(), len(m.buckets))
	}
	for i := 1; i < n; i++ {
		qw := m.Find(WordId(i * 7))
		if qw == nil || *qw != (StateWeight{StateId(i), Weight(-i)}) {
			t.Fatalf("key %d: expected (%d, %d); got %v", i*7, i, -i, qw)
		}
	}
	if qw := m.Find(0); qw == nil || *qw != (StateWeight{42, -1}) {
		t.Errorf("expected (42, -1); got %v", qw)
	}
	if qw := m.Find(1); qw != nil {
		t.Errorf("expected no entry for 1; got %v", *qw)
	}

	// Shrinking keeps one empty bucket and every key.
	m.rehash(0)
	if len(m.buckets) != n+1 {
		t.Errorf("expected %d buckets; got %d", n+1, len(m.buckets))
	}
	keys := 0
	m.each(func(e xqwEntry) {
		keys++
		if qw := m.Find(e.Key); qw == nil || *qw != e.Value {
			t.Errorf("key %d: expected %v; got %v", e.Key, e.Value, qw)
		}
	})
	if keys != n {
		t.Errorf("expected %d keys; got %d", n, keys)
	}

	var none *xqwMap
	if none.Size() != 0 || none.Find(0) != nil {
		t.Error("expected a nil map to be empty")
	}
}
