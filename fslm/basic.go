// Package fslm implements finite-state back-off n-gram language
// models. It is the macro-level model that package lmmacro scores
// against.
package fslm

// Basic types and related constants.

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
)

// WordId is the integer code of a word in a Vocab.
type WordId uint32

// WORD_NIL is never assigned to a word. It doubles as the OOV code of
// models whose vocabulary has no <unk>.
const WORD_NIL = ^WordId(0)

// Default sentence boundary and unknown word symbols.
const (
	BOS = "<s>"
	EOS = "</s>"
	UNK = "<unk>"
)

// StateId represents a language model state.
type StateId uint32

const (
	STATE_NIL    StateId = ^StateId(0) // An invalid state.
	_STATE_EMPTY StateId = 0           // Models always uses state 0 for empty context.
	_STATE_START StateId = 1           // Models always uses state 1 for start.
)

// Weight is the floating point number type for log-probabilities.
type Weight float32

const WEIGHT_SIZE = 32 // The bit size of Weight.

func (w *Weight) String() string {
	return strconv.FormatFloat(float64(*w), 'g', -1, 32)
}

func (w *Weight) Set(s string) error {
	f, err := strconv.ParseFloat(s, 32)
	if err == nil {
		*w = Weight(f)
	}
	return err
}

func (w *Weight) Type() string { return "weight" }

// I seriously do not care about any platform that supports Go but
// does not support IEEE 754 infinity.
var (
	WEIGHT_LOG0 = Weight(math.Inf(-1))
	textLog0    = Weight(-99)
)

func init() {
	flag.Var(&textLog0, "fslm.log0", "treat weight <= this as log(0)")
}

type StateWeight struct {
	State  StateId
	Weight Weight
}

type WordStateWeight struct {
	Word   WordId
	State  StateId
	Weight Weight
}

// Model is the general interface of an N-gram langauge model. It is
// mostly for convenience and the actual implementations should be
// prefered to speed up look-ups.
type Model interface {
	// Start returns the start state, i.e. the state with context
	// <s>. The user should never explicitly query <s>, which has
	// undefined behavior (see NextI).
	Start() StateId
	// NextI finds out the next state to go from p consuming x. x can
	// not be <s> or </s>, in which case the result is undefined, but
	// can be WORD_NIL. Any x that is not part of the model's vocabulary
	// is treated as OOV. The returned weight w is WEIGHT_LOG0 if and
	// only if unigram x is an OOV (note: although rare, it is possible
	// to have "<s> x" but not "x" in the LM, in which case "x" is also
	// considered an OOV when not occuring as the first token of a
	// sentence).
	NextI(p StateId, x WordId) (q StateId, w Weight)
	// NextS is similar to NextI. s can be anything but <s> or </s>, in
	// which case the result is undefined.
	NextS(p StateId, x string) (q StateId, w Weight)
	// Final returns the final weight of "consuming" </s> from p. A
	// sentence query should finish with this to properly score the
	// *whole* sentence.
	Final(p StateId) Weight
	// Vocab returns the model's vocabulary and special sentence
	// boundary symbols.
	Vocab() (vocab *Vocab, bos, eos string, bosId, eosId WordId)
}

// IterableModel is a language model whose states and transitions can
// be iterated.
type IterableModel interface {
	Model
	// NumStates returns the number of states. StateIds are always from
	// 0 to (the number of states - 1).
	NumStates() int
	// Transitions returns a channel that can be used to iterate over
	// the non-back-off transitions from a given state.
	Transitions(p StateId) chan WordStateWeight
	// BackOff returns the back off state and weight of p. The back off
	// state of the empty context is STATE_NIL and its weight is
	// arbitrary.
	BackOff(p StateId) (q StateId, w Weight)
}

// Backend is an IterableModel that also knows its order and the
// context length of every state. Both Hashed and Sorted are Backends;
// a Scorer needs one.
type Backend interface {
	IterableModel
	// Order returns the length of the longest n-gram of the model.
	Order() int
	// StateOrder returns the number of words of context p stands for.
	StateOrder(p StateId) int
	// lookup finds the lexical transition from p consuming x. When
	// there is none, it returns p's back-off and false.
	lookup(p StateId, x WordId) (StateWeight, bool)
}

// nextI is the shared back-off walk behind NextI. It additionally
// reports the state the transition was found at and the accumulated
// back-off weight.
func nextI(m Backend, p StateId, x WordId) (q StateId, w Weight, at StateId, bow Weight) {
	next, ok := m.lookup(p, x)
	for !ok && p != _STATE_EMPTY {
		p = next.State
		w += next.Weight
		next, ok = m.lookup(p, x)
	}
	if ok {
		return next.State, w + next.Weight, p, w
	}
	return _STATE_EMPTY, WEIGHT_LOG0, STATE_NIL, w
}

// WriteDot writes the automaton of m in the Graphviz dot language.
// Nodes are labeled "id/context length"; solid edges are lexical
// transitions and dashed ones back-offs. Final transitions lead to a
// single node named final.
func WriteDot(m Backend, w io.Writer) error {
	vocab, _, _, _, _ := m.Vocab()
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph fslm {")
	fmt.Fprintln(bw, "  final [shape=doublecircle]")
	for i := 0; i < m.NumStates(); i++ {
		p := StateId(i)
		fmt.Fprintf(bw, "  %d [label=\"%d/%d\"]\n", p, p, m.StateOrder(p))
		for e := range m.Transitions(p) {
			to := "final"
			if e.State != STATE_NIL {
				to = strconv.Itoa(int(e.State))
			}
			fmt.Fprintf(bw, "  %d -> %s [label=%q]\n", p, to, fmt.Sprintf("%s : %g", vocab.StringOf(e.Word), e.Weight))
		}
		if q, bo := m.BackOff(p); q != STATE_NIL {
			fmt.Fprintf(bw, "  %d -> %d [label=\"%g\",style=dashed]\n", p, q, bo)
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// A list of implemented models.
const (
	MODEL_HASHED = iota
	MODEL_SORTED
)

// Magic words for binary formats.
const (
	MAGIC_HASHED = "#fslm.hash"
	MAGIC_SORTED = "#fslm.sort"
)
