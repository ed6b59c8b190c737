package lmmacro

import (
	"math"
	"strings"
	"testing"

	"github.com/kho/lmmacro/fslm"
)

func TestScoreSentence(t *testing.T) {
	base := tagsScorer(0, t)
	stats, scores := ScoreSentence[MacroCode](base, strings.Fields("DET NOUN VERB"), -10)
	if stats.Sentences != 1 || stats.Words != 3 || stats.OOVs != 0 {
		t.Errorf("expected 1 sentence, 3 words and no OOV; got %+v", stats)
	}
	if len(scores) != 4 || scores[3].Word != fslm.EOS {
		t.Fatalf("expected 4 scores ending with </s>; got %+v", scores)
	}

	// Same as walking the sentence through the model.
	m := base.Backend()
	p, total := m.Start(), fslm.Weight(0)
	for _, w := range []string{"DET", "NOUN", "VERB"} {
		var x fslm.Weight
		p, x = m.NextS(p, w)
		total += x
	}
	total += m.Final(p)
	if !weightNear(fslm.Weight(stats.LogProb), total) {
		t.Errorf("expected log-probability %g; got %g", total, stats.LogProb)
	}
}

func TestEvaluate(t *testing.T) {
	base := tagsScorer(16, t)
	var sents []Stats
	stats, err := Evaluate[MacroCode](base, strings.NewReader("DET NOUN VERB\nNOUN FOO\n"), -10, func(s Stats, scores []TokenScore) {
		sents = append(sents, s)
		if len(scores) != s.Words+1 {
			t.Errorf("expected %d scores; got %d", s.Words+1, len(scores))
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sents) != 2 {
		t.Fatalf("expected 2 sentences reported; got %d", len(sents))
	}
	if stats.Sentences != 2 || stats.Words != 5 || stats.OOVs != 1 {
		t.Errorf("expected 2 sentences, 5 words and 1 OOV; got %+v", stats)
	}

	var expected float64
	for _, ngram := range []string{
		"<s> DET", "<s> DET NOUN", "DET NOUN VERB", "NOUN VERB </s>",
		"<s> NOUN", "NOUN FOO </s>",
	} {
		expected += float64(base.LogProb(macroOf(base, ngram)))
	}
	expected += -10
	if math.Abs(stats.LogProb-expected) > 1e-4 {
		t.Errorf("expected log-probability %g; got %g", expected, stats.LogProb)
	}
	if p, e := stats.Perplexity(), math.Pow(10, -expected/7); math.Abs(p-e) > 1e-3*e {
		t.Errorf("expected perplexity %g; got %g", e, p)
	}
	if p, e := stats.PerplexityNoEOS(), math.Pow(10, -expected/5); math.Abs(p-e) > 1e-3*e {
		t.Errorf("expected perplexity without </s> %g; got %g", e, p)
	}
	if sents[0].LogProb+sents[1].LogProb != stats.LogProb {
		t.Errorf("expected the sentences to add up to %g", stats.LogProb)
	}
}

func TestEvaluateMacro(t *testing.T) {
	base := tagsScorer(0, t)
	m := newMacro(base, Config{Field: FIELD_WHOLE, Collapse: true}, tagsMap, t)
	stats, err := Evaluate[MicroCode](m, strings.NewReader("NN( NN) VB\nNN VB\n"), -10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Words != 5 || stats.OOVs != 0 {
		t.Errorf("expected 5 words and no OOV; got %+v", stats)
	}
	// The chunk scores like its single token.
	single, _ := ScoreSentence[MicroCode](m, strings.Fields("NN VB"), -10)
	if !weightNear(fslm.Weight(stats.LogProb), fslm.Weight(2*single.LogProb)) {
		t.Errorf("expected log-probability %g; got %g", 2*single.LogProb, stats.LogProb)
	}
}

func TestEmptyStats(t *testing.T) {
	var s Stats
	if !math.IsNaN(s.Perplexity()) || !math.IsNaN(s.PerplexityNoEOS()) {
		t.Errorf("expected NaN perplexities; got %g and %g", s.Perplexity(), s.PerplexityNoEOS())
	}
	s.Add(Stats{Sentences: 1, Words: 2, OOVs: 1, BackOffs: 3, LogProb: -1})
	s.Add(Stats{Sentences: 1, Words: 1, LogProb: -2})
	if e := (Stats{Sentences: 2, Words: 3, OOVs: 1, BackOffs: 3, LogProb: -3}); s != e {
		t.Errorf("expected %+v; got %+v", e, s)
	}
}
