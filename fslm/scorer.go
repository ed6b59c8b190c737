package fslm

import (
	"encoding/binary"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// Suffix identifies the longest suffix of an n-gram that the model
// knows. Two n-grams with equal Suffix are indistinguishable for any
// future query, so a decoder can recombine their hypotheses.
type Suffix struct {
	State StateId
	Size  int
}

// Compact packs s into a single word.
func (s Suffix) Compact() uint64 {
	return uint64(s.State)<<32 | uint64(uint32(s.Size))
}

// Score is the full result of an incremental query.
type Score struct {
	// Log-probability of the last word given the rest.
	Weight Weight
	// Back-off weight included in Weight.
	BackOff Weight
	// Number of words the query had to drop; the n-gram actually
	// used has length len(ngram) - Level.
	Level int
	// State after consuming the whole n-gram.
	Suffix Suffix
}

// Scorer answers n-gram queries on a Backend. N-grams are given
// oldest word first as codes of the model's vocabulary and anything
// beyond the model's order is ignored. A Scorer is safe for concurrent
// use as long as nobody modifies the model's vocabulary.
type Scorer struct {
	m     Backend
	vocab *Vocab
	order int

	cache        *lru.Cache[string, Score]
	hits, misses atomic.Int64
}

// NewScorer wraps m. CachedLogProb results are memoized in an LRU of
// cacheSize entries; cacheSize <= 0 disables the cache.
func NewScorer(m Backend, cacheSize int) (*Scorer, error) {
	vocab, _, _, _, _ := m.Vocab()
	s := &Scorer{m: m, vocab: vocab, order: m.Order()}
	if cacheSize > 0 {
		cache, err := lru.New[string, Score](cacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "creating score cache")
		}
		s.cache = cache
	}
	return s, nil
}

func (s *Scorer) MaxOrder() int { return s.order }

func (s *Scorer) Dict() Dictionary { return s.vocab }

func (s *Scorer) Backend() Backend { return s.m }

// Encode returns the code of w, or the OOV code when the model does not
// know w.
func (s *Scorer) Encode(w string) WordId { return s.vocab.Encode(w) }

func (s *Scorer) Decode(x WordId) string { return s.vocab.StringOf(x) }

// truncate keeps the last MaxOrder() words.
func (s *Scorer) truncate(ngram []WordId) []WordId {
	if len(ngram) > s.order {
		return ngram[len(ngram)-s.order:]
	}
	return ngram
}

// walk consumes ws from the empty context. A </s> in the middle leads
// nowhere, so the walk starts over from the empty context.
func (s *Scorer) walk(ws []WordId) StateId {
	p := _STATE_EMPTY
	for _, x := range ws {
		p, _ = s.m.NextI(p, x)
		if p == STATE_NIL {
			p = _STATE_EMPTY
		}
	}
	return p
}

// LogProb is the log-probability of the last word of ngram given the
// words before it.
func (s *Scorer) LogProb(ngram []WordId) Weight {
	return s.score(ngram).Weight
}

// CachedLogProb is LogProb with the rest of the incremental query
// result. An empty n-gram scores 0 in the empty state.
func (s *Scorer) CachedLogProb(ngram []WordId) Score {
	if s.cache == nil {
		return s.score(ngram)
	}
	key := ngramKey(s.truncate(ngram))
	if sc, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return sc
	}
	s.misses.Add(1)
	sc := s.score(ngram)
	s.cache.Add(key, sc)
	return sc
}

func (s *Scorer) score(ngram []WordId) Score {
	ngram = s.truncate(ngram)
	if len(ngram) == 0 {
		return Score{Suffix: Suffix{_STATE_EMPTY, 0}}
	}
	p := s.walk(ngram[:len(ngram)-1])
	q, w, at, bow := nextI(s.m, p, ngram[len(ngram)-1])
	sc := Score{Weight: w, BackOff: bow, Level: len(ngram)}
	if at != STATE_NIL {
		sc.Level = len(ngram) - s.m.StateOrder(at) - 1
	}
	sc.Suffix = s.suffix(q)
	return sc
}

func (s *Scorer) suffix(q StateId) Suffix {
	if q == STATE_NIL {
		return Suffix{STATE_NIL, 0}
	}
	return Suffix{q, s.m.StateOrder(q)}
}

// MaxSuffix returns the state of the longest suffix of ngram known to
// the model.
func (s *Scorer) MaxSuffix(ngram []WordId) Suffix {
	return s.suffix(s.walkAll(s.truncate(ngram)))
}

// MaxCompactSuffix is MaxSuffix packed into a single word, suitable as
// a hash key.
func (s *Scorer) MaxCompactSuffix(ngram []WordId) uint64 {
	return s.MaxSuffix(ngram).Compact()
}

// walkAll is walk except that a trailing </s> leaves STATE_NIL.
func (s *Scorer) walkAll(ws []WordId) StateId {
	if len(ws) == 0 {
		return _STATE_EMPTY
	}
	q, _ := s.m.NextI(s.walk(ws[:len(ws)-1]), ws[len(ws)-1])
	return q
}

// CacheStats reports cache hits and misses so far.
func (s *Scorer) CacheStats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

func ngramKey(ngram []WordId) string {
	buf := make([]byte, 4*len(ngram))
	for i, x := range ngram {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(x))
	}
	return string(buf)
}
