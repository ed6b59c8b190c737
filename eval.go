package lmmacro

import (
	"bufio"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/kho/lmmacro/fslm"
)

// Stats sums up the scores of a number of sentences.
type Stats struct {
	Sentences int
	// Words does not count </s>.
	Words    int
	OOVs     int
	BackOffs int
	// Total log10 probability, OOVs charged with the unk score.
	LogProb float64
}

func (s *Stats) Add(o Stats) {
	s.Sentences += o.Sentences
	s.Words += o.Words
	s.OOVs += o.OOVs
	s.BackOffs += o.BackOffs
	s.LogProb += o.LogProb
}

func perplexity(logProb float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return math.Pow(10, -logProb/float64(n))
}

// Perplexity counts </s> as a word.
func (s Stats) Perplexity() float64 {
	return perplexity(s.LogProb, s.Words+s.Sentences)
}

// PerplexityNoEOS only counts real words.
func (s Stats) PerplexityNoEOS() float64 {
	return perplexity(s.LogProb, s.Words)
}

// TokenScore is the score of one position of a sentence.
type TokenScore struct {
	Word  string
	Score fslm.Score
	OOV   bool
}

// ScoreSentence scores words followed by </s>, each given <s> and the
// words before it. OOV positions are charged unk instead of their
// weight.
func ScoreSentence[C Code](m NgramModel[C], words []string, unk fslm.Weight) (Stats, []TokenScore) {
	stats := Stats{Sentences: 1, Words: len(words)}
	scores := make([]TokenScore, 0, len(words)+1)
	order := m.MaxOrder()
	ngram := make([]C, 0, order+1)
	ngram = append(ngram, m.Encode(fslm.BOS))
	for i := 0; i <= len(words); i++ {
		w := fslm.EOS
		if i < len(words) {
			w = words[i]
		}
		ngram = append(ngram, m.Encode(w))
		if len(ngram) > order {
			ngram = append(ngram[:0], ngram[len(ngram)-order:]...)
		}
		sc := m.CachedLogProb(ngram)
		ts := TokenScore{Word: w, Score: sc}
		if sc.Weight == fslm.WEIGHT_LOG0 {
			ts.OOV = true
			stats.OOVs++
			stats.LogProb += float64(unk)
		} else {
			stats.LogProb += float64(sc.Weight)
		}
		if sc.Level > 0 {
			stats.BackOffs++
		}
		scores = append(scores, ts)
	}
	return stats, scores
}

// Evaluate scores every line of in as a sentence of whitespace
// separated words. Each sentence is passed to report when it is not
// nil.
func Evaluate[C Code](m NgramModel[C], in io.Reader, unk fslm.Weight, report func(Stats, []TokenScore)) (Stats, error) {
	var total Stats
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		stats, scores := ScoreSentence(m, strings.Fields(scanner.Text()), unk)
		total.Add(stats)
		if report != nil {
			report(stats, scores)
		}
	}
	if err := scanner.Err(); err != nil {
		return total, errors.Wrap(err, "reading sentences")
	}
	return total, nil
}
