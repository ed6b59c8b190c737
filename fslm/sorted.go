package fslm

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
)

type Sorted struct {
	// The vocabulary of the model. Don't modify this. If you need to
	// have a vocab based on this, make a copy using Vocab.Copy().
	vocab *Vocab
	// Sentence boundary symbols.
	bos, eos     string
	bosId, eosId WordId
	order        int
	depth        []uint8
	// Transitions indexed by state and sorted by label. Back-off
	// transitions are stored as transitions consuming WORD_NIL.
	transitions [][]WordStateWeight
}

func (m *Sorted) Start() StateId {
	return _STATE_START
}

func (m *Sorted) NextI(p StateId, x WordId) (q StateId, w Weight) {
	q, w, _, _ = nextI(m, p, x)
	return
}

func (m *Sorted) lookup(p StateId, x WordId) (StateWeight, bool) {
	next := m.findNext(p, x)
	return StateWeight{next.State, next.Weight}, next.Word != WORD_NIL
}

func (m *Sorted) findNext(p StateId, x WordId) *WordStateWeight {
	next := m.transitions[p]
	// Search for x using binary search.
	l, h := 0, len(next)
	for l < h {
		mid := l + (h-l)>>1
		xMid := next[mid].Word
		if xMid < x {
			l = mid + 1
		} else if xMid > x {
			h = mid
		} else {
			return &next[mid]
		}
	}
	// Not found, take the back-off transitions.
	return &next[len(next)-1]
}

func (m *Sorted) NextS(p StateId, s string) (q StateId, w Weight) {
	return m.NextI(p, m.vocab.IdOf(s))
}

func (m *Sorted) Final(p StateId) Weight {
	_, w := m.NextI(p, m.eosId)
	return w
}

func (m *Sorted) BackOff(p StateId) (StateId, Weight) {
	if p == _STATE_EMPTY {
		return STATE_NIL, 0
	}
	next := m.transitions[p]
	backoff := next[len(next)-1]
	return backoff.State, backoff.Weight
}

func (m *Sorted) Vocab() (*Vocab, string, string, WordId, WordId) {
	return m.vocab, m.bos, m.eos, m.bosId, m.eosId
}

func (m *Sorted) Order() int { return m.order }

func (m *Sorted) StateOrder(p StateId) int { return int(m.depth[p]) }

func (m *Sorted) NumStates() int {
	return len(m.transitions)
}

func (m *Sorted) Transitions(p StateId) chan WordStateWeight {
	ch := make(chan WordStateWeight)
	go func() {
		next := m.transitions[p]
		for _, i := range next[:len(next)-1] {
			ch <- i
		}
		close(ch)
	}()
	return ch
}

func (m *Sorted) WriteBinary(path string) (err error) {
	w, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	bw := newBlockWriter(w)
	if err = bw.WriteString(MAGIC_SORTED, 0); err != nil {
		return
	}
	numTransitions := make([]int, len(m.transitions))
	numEntries := int64(0)
	for i, t := range m.transitions {
		numTransitions[i] = len(t)
		numEntries += int64(len(t))
	}
	header, err := encodeHeader(m.vocab, m.bos, m.eos, m.order, m.depth, numTransitions)
	if err != nil {
		return
	}
	if err = bw.Write(header, 0); err != nil {
		return
	}
	align := int64(unsafe.Alignof(WordStateWeight{}))
	size := int64(unsafe.Sizeof(WordStateWeight{}))
	if err = bw.NewBlock(align, size*numEntries); err != nil {
		return
	}
	for _, i := range m.transitions {
		if err = bw.Append(asBytes(i)); err != nil {
			return
		}
	}
	return nil
}

func IsSortedBinary(raw []byte) bool {
	return hasMagic(raw, MAGIC_SORTED)
}

// UnsafeParseBinary makes m a view of raw, which must stay valid
// (and unmodified) as long as m is in use.
func (m *Sorted) UnsafeParseBinary(raw []byte) error {
	bs := newBlockSlicer(raw)
	magic, err := bs.Slice()
	if err != nil {
		return err
	}
	if string(magic) != MAGIC_SORTED {
		return errors.New("not a FSLM sorted binary file")
	}
	header, err := bs.Slice()
	if err != nil {
		return err
	}
	var numTransitions []int
	m.vocab, m.bos, m.eos, m.bosId, m.eosId, m.order, m.depth, numTransitions, err = decodeHeader(header)
	if err != nil {
		return err
	}
	entryBytes, err := bs.Slice()
	if err != nil {
		return err
	}
	entries, err := fromBytes[WordStateWeight](entryBytes)
	if err != nil {
		return err
	}
	m.transitions = make([][]WordStateWeight, len(numTransitions))
	low := 0
	for i, n := range numTransitions {
		// Every state has at least its back-off transition.
		if n == 0 || low+n > len(entries) {
			return errors.Errorf("bad number of transitions %d for state %d", n, i)
		}
		m.transitions[i] = entries[low : low+n : low+n]
		low += n
	}
	return nil
}

type byWord []WordStateWeight

func (s byWord) Len() int           { return len(s) }
func (s byWord) Less(i, j int) bool { return s[i].Word < s[j].Word }
func (s byWord) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
