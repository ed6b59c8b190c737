package fslm

import (
	"bytes"
	"testing"
)

func TestHashedSimple(t *testing.T) {
	hashedTest(simpleTrigramLM, simpleTrigramSents, t)
}

func TestHashedSparse(t *testing.T) {
	hashedTest(sparseFivegramLM, sparseFivegramSents, t)
}

func TestHashedSparser(t *testing.T) {
	hashedTest(sparserFivegramLM, sparserFivegramSents, t)
}

func TestHashedTrickyBackOff(t *testing.T) {
	hashedTest(trickyBackOffLM, trickyBackOffSents, t)
}

func hashedTest(lm []ngram, sents [][]token, t *testing.T) {
	builder := readyBuilder(lm)

	model := builder.DumpHashed(0)

	var buf bytes.Buffer
	if err := WriteDot(model, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Log(buf.String())

	if err := checkModel(model); err != nil {
		t.Errorf("check model failed with error %v", err)
	}

	sentTest(model, sents, t)
}

func TestHashedOOV(t *testing.T) {
	model := readyBuilder(simpleTrigramLM).DumpHashed(0)
	for _, p := range []StateId{_STATE_EMPTY, model.Start()} {
		q, w := model.NextS(p, "zzz")
		if q != _STATE_EMPTY || w != WEIGHT_LOG0 {
			t.Errorf("expected NextS(%d, zzz) = (%d, %g); got (%d, %g)", p, _STATE_EMPTY, WEIGHT_LOG0, q, w)
		}
		q, w = model.NextI(p, WORD_NIL)
		if q != _STATE_EMPTY || w != WEIGHT_LOG0 {
			t.Errorf("expected NextI(%d, WORD_NIL) = (%d, %g); got (%d, %g)", p, _STATE_EMPTY, WEIGHT_LOG0, q, w)
		}
	}
}
