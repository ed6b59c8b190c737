// Package lmmacro scores n-grams of fine-grained ("micro") tokens with
// a language model over a coarser ("macro") vocabulary. A Macro maps
// every query through a micro-to-macro table, optionally merging chunks
// of micro tokens into a single macro token, and forwards it to the base
// model.
package lmmacro

import (
	"github.com/kho/lmmacro/fslm"
)

// MicroCode is the code of a micro token in a MicroDict. It is a
// distinct type so that micro and macro n-grams cannot be mixed up.
type MicroCode uint32

// MICRO_NIL is never assigned to a micro token.
const MICRO_NIL = ^MicroCode(0)

// MacroCode is the code of a macro token, i.e. a word of the base
// model.
type MacroCode = fslm.WordId

// N-grams are stored oldest token first.
type (
	MicroNgram = []MicroCode
	MacroNgram = []MacroCode
)

// Code is either kind of token code.
type Code interface {
	~uint32
}

// NgramModel is what a consumer needs to score n-grams in the code space
// C. Both *fslm.Scorer (C = MacroCode) and *Macro (C = MicroCode)
// implement it, so code written against NgramModel works with either.
type NgramModel[C Code] interface {
	// MaxOrder is the longest n-gram that matters; longer n-grams are
	// truncated to their most recent MaxOrder() tokens.
	MaxOrder() int
	// Encode returns the code of a token string.
	Encode(w string) C
	// Decode is the inverse of Encode.
	Decode(c C) string
	// LogProb is the log10 probability of the last token given the
	// ones before it.
	LogProb(ngram []C) fslm.Weight
	// CachedLogProb is LogProb with back-off information and the suffix
	// state left by the n-gram.
	CachedLogProb(ngram []C) fslm.Score
	// MaxSuffix is the state of the longest suffix of ngram known to
	// the model. N-grams with equal MaxSuffix can be recombined.
	MaxSuffix(ngram []C) fslm.Suffix
	MaxCompactSuffix(ngram []C) uint64
}

// BaseModel is a macro-level model that can be wrapped by Macro.
type BaseModel interface {
	NgramModel[MacroCode]
	// Dict is the dictionary of macro tokens.
	Dict() fslm.Dictionary
}

var (
	_ BaseModel             = (*fslm.Scorer)(nil)
	_ NgramModel[MicroCode] = (*Macro)(nil)
)
