package fslm

import (
	"sort"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Longest context a state can carry; depths are stored as uint8.
const maxContext = 254

// Builder collects ARPA entries into a back-off automaton and dumps it
// as a Hashed or a Sorted model. Entries can be added in any order.
type Builder struct {
	vocab        *Vocab
	bosId, eosId WordId
	order        int
	// Per state: lexical transitions (nil until the first one is set),
	// back-off and context length.
	arcs    []*xqwMap
	backoff []StateWeight
	depth   []uint8
	// Set while dumping; new id of each state or STATE_NIL if pruned.
	renumber []StateId
}

// NewBuilder starts an empty model whose vocabulary begins with <s>
// and </s>.
func NewBuilder() *Builder {
	b := &Builder{vocab: NewVocab([]string{BOS, EOS}), order: 1}
	b.bosId, b.eosId = b.vocab.IdOf(BOS), b.vocab.IdOf(EOS)
	b.addState(0) // _STATE_EMPTY
	b.addState(1) // _STATE_START
	b.arc(_STATE_EMPTY).Set(b.bosId, StateWeight{_STATE_START, 0})
	return b
}

// AddNgram adds the weight of word after context and, unless word is
// </s>, the back-off of the extended context. Weights no greater than
// the -fslm.log0 flag become WEIGHT_LOG0.
func (b *Builder) AddNgram(context []string, word string, weight, backOff Weight) error {
	if len(context) > maxContext {
		return errors.Errorf("context %q is longer than %d words", context, maxContext)
	}
	for i, c := range context {
		if c == EOS || (i > 0 && c == BOS) {
			return errors.Errorf("misplaced %s in context %q", c, context)
		}
	}
	weight, backOff = clampLog0(weight), clampLog0(backOff)
	if len(context) > 0 && word == BOS && weight > -10 {
		glog.Warningf("%s after %q has weight %g instead of log(0)", word, context, weight)
	}
	if word == EOS && backOff != 0 {
		glog.Warningf("ignoring back-off %g of %q followed by %s", backOff, context, word)
	}
	if n := len(context) + 1; n > b.order {
		b.order = n
	}

	p := _STATE_EMPTY
	for _, c := range context {
		p = b.child(p, b.vocab.IdOrAdd(c))
	}
	x := b.vocab.IdOrAdd(word)
	if x == b.eosId {
		// A final transition leads nowhere.
		b.arc(p).Set(x, StateWeight{STATE_NIL, weight})
		return nil
	}
	q := b.child(p, x)
	b.backoff[q].Weight = backOff
	b.arc(p).Set(x, StateWeight{q, weight})
	return nil
}

func clampLog0(w Weight) Weight {
	if w <= textLog0 {
		return WEIGHT_LOG0
	}
	return w
}

func (b *Builder) addState(depth int) StateId {
	p := StateId(len(b.arcs))
	b.arcs = append(b.arcs, nil)
	// STATE_NIL marks a back-off that is not linked yet.
	b.backoff = append(b.backoff, StateWeight{STATE_NIL, 0})
	b.depth = append(b.depth, uint8(depth))
	return p
}

func (b *Builder) arc(p StateId) *xqwMap {
	if b.arcs[p] == nil {
		b.arcs[p] = newXqwMap()
	}
	return b.arcs[p]
}

// child returns the state reached from p by x, adding it behind a zero
// weight transition when it is new.
func (b *Builder) child(p StateId, x WordId) StateId {
	if qw := b.arcs[p].Find(x); qw != nil {
		return qw.State
	}
	q := b.addState(int(b.depth[p]) + 1)
	b.arc(p).Set(x, StateWeight{q, 0})
	return q
}

// DumpHashed turns b into a Hashed model; b must not be used
// afterwards. Each state gets scale times as many buckets as it has
// transitions (1.5 when scale <= 1), trading memory for shorter
// collision chains.
func (b *Builder) DumpHashed(scale float64) *Hashed {
	if scale <= 1 {
		scale = 1.5
	}
	m := &Hashed{vocab: b.vocab, bos: BOS, eos: EOS, bosId: b.bosId, eosId: b.eosId, order: b.order}
	m.depth = b.dump(func(arcs *xqwMap, backoff StateWeight) {
		arcs.rehash(int(float64(arcs.Size()) * scale))
		for i := range arcs.buckets {
			if e := &arcs.buckets[i]; e.Key == WORD_NIL {
				e.Value = backoff
			} else {
				e.Value = b.redirect(e.Value)
			}
		}
		m.transitions = append(m.transitions, arcs.buckets)
	})
	return m
}

// DumpSorted turns b into a Sorted model; b must not be used
// afterwards.
func (b *Builder) DumpSorted() *Sorted {
	m := &Sorted{vocab: b.vocab, bos: BOS, eos: EOS, bosId: b.bosId, eosId: b.eosId, order: b.order}
	m.depth = b.dump(func(arcs *xqwMap, backoff StateWeight) {
		next := make([]WordStateWeight, 0, arcs.Size()+1)
		arcs.each(func(e xqwEntry) {
			qw := b.redirect(e.Value)
			next = append(next, WordStateWeight{e.Key, qw.State, qw.Weight})
		})
		next = append(next, WordStateWeight{WORD_NIL, backoff.State, backoff.Weight})
		sort.Sort(byWord(next))
		m.transitions = append(m.transitions, next)
	})
	return m
}

// dump links and prunes the automaton, then calls emit for every
// surviving state in the order of the new ids with the state's lexical
// transitions and renumbered back-off. It returns the context length
// of the surviving states.
func (b *Builder) dump(emit func(arcs *xqwMap, backoff StateWeight)) []uint8 {
	b.link()
	b.prune()
	var depth []uint8
	for o, n := range b.renumber {
		if n == STATE_NIL {
			continue
		}
		arcs := b.arcs[o]
		if arcs == nil {
			// Only _STATE_START may have no transitions.
			arcs = newXqwMap()
		}
		backoff := b.backoff[o]
		if backoff.State != STATE_NIL {
			backoff.State = b.renumber[backoff.State]
		}
		emit(arcs, backoff)
		b.arcs[o] = nil
		depth = append(depth, b.depth[o])
	}
	b.vocab, b.arcs, b.backoff, b.depth, b.renumber = nil, nil, nil, nil, nil
	return depth
}

// link points every state's back-off at the nearest state on its
// back-off chain that has lexical transitions.
func (b *Builder) link() {
	b.arcs[_STATE_EMPTY].each(func(e xqwEntry) {
		if e.Value.State != STATE_NIL {
			b.backoff[e.Value.State].State = _STATE_EMPTY
		}
	})
	// A parent is always created before its children, so p is linked by
	// the time its own transitions are.
	for i := 1; i < len(b.arcs); i++ {
		p := StateId(i)
		b.arcs[p].each(func(e xqwEntry) {
			if e.Value.State != STATE_NIL {
				b.linkArc(p, e.Key, e.Value.State)
			}
		})
	}
}

// linkArc links q, reached from p by x, and returns its back-off. The
// back-off follows x from the nearest state on p's back-off chain that
// has a transition for it. A target with no lexical transitions of its
// own is skipped and its back-off weight charged to q.
func (b *Builder) linkArc(p StateId, x WordId, q StateId) StateWeight {
	bo := &b.backoff[q]
	if bo.State != STATE_NIL {
		return *bo
	}
	bo.State = _STATE_EMPTY
	for r := b.backoff[p].State; ; r = b.backoff[r].State {
		if next := b.arcs[r].Find(x); next != nil {
			up := b.linkArc(r, x, next.State)
			if b.arcs[next.State] == nil {
				bo.State = up.State
				bo.Weight += up.Weight
			} else {
				bo.State = next.State
			}
			break
		}
		if r == _STATE_EMPTY {
			break
		}
	}
	return *bo
}

// prune numbers the states kept in the final model: _STATE_EMPTY,
// _STATE_START and every state with lexical transitions.
func (b *Builder) prune() {
	b.renumber = make([]StateId, len(b.arcs))
	next := StateId(0)
	for i, arcs := range b.arcs {
		if StateId(i) <= _STATE_START || arcs != nil {
			b.renumber[i] = next
			next++
		} else {
			b.renumber[i] = STATE_NIL
		}
	}
	glog.V(1).Infof("kept %d of %d states", next, len(b.arcs))
}

// redirect moves a transition into a pruned state on to that state's
// back-off, charging the back-off weight.
func (b *Builder) redirect(qw StateWeight) StateWeight {
	if qw.State == STATE_NIL {
		return qw
	}
	if n := b.renumber[qw.State]; n != STATE_NIL {
		return StateWeight{n, qw.Weight}
	}
	bo := b.backoff[qw.State]
	return StateWeight{b.renumber[bo.State], qw.Weight + bo.Weight}
}
