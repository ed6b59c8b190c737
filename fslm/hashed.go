package fslm

import (
	"bytes"
	"encoding/gob"
	"os"
	"unsafe"

	"github.com/pkg/errors"
)

// Hashed is a finite-state representation of a n-gram language model
// using hash tables. A Hashed model is usually loaded from file or
// constructed with a Builder.
type Hashed struct {
	// The vocabulary of the model. Don't modify this. If you need to
	// have a vocab based on this, make a copy using Vocab.Copy().
	vocab *Vocab
	// Sentence boundary symbols.
	bos, eos     string
	bosId, eosId WordId
	order        int
	depth        []uint8
	// Buckets per state for out-going lexical transitions.
	// There are three kinds of transitions:
	//
	// (1) A lexical transition that consumes an actual word (i.e. any
	// valid word other than <s> or </s>). This leads to a valid state
	// with some weight. Note we allow transition from empty consuming
	// <s>. This transition should have WEIGHT_LOG0 anyway (e.g. those
	// built from SRILM) so keeping it doesn't cause much trouble.
	//
	// (2) A final transition that consumes </s>. This gives the final
	// weight but always leads to an invalid state.
	//
	// (3) Buckets with invalid keys (WORD_NIL) are all filled with
	// back-off transitions so that we know the back-off transition
	// immediately when the key cannot be found.
	transitions []xqwBuckets
}

func (m *Hashed) Start() StateId {
	return _STATE_START
}

func (m *Hashed) NextI(p StateId, x WordId) (q StateId, w Weight) {
	q, w, _, _ = nextI(m, p, x)
	return
}

func (m *Hashed) lookup(p StateId, x WordId) (StateWeight, bool) {
	next := m.transitions[p].slot(x)
	return next.Value, next.Key != WORD_NIL
}

func (m *Hashed) NextS(p StateId, s string) (q StateId, w Weight) {
	return m.NextI(p, m.vocab.IdOf(s))
}

func (m *Hashed) Final(p StateId) Weight {
	_, w := m.NextI(p, m.eosId)
	return w
}

func (m *Hashed) BackOff(p StateId) (StateId, Weight) {
	if p == _STATE_EMPTY {
		return STATE_NIL, 0
	}
	backoff := m.transitions[p].slot(WORD_NIL).Value
	return backoff.State, backoff.Weight
}

func (m *Hashed) Vocab() (*Vocab, string, string, WordId, WordId) {
	return m.vocab, m.bos, m.eos, m.bosId, m.eosId
}

func (m *Hashed) Order() int { return m.order }

func (m *Hashed) StateOrder(p StateId) int { return int(m.depth[p]) }

func (m *Hashed) NumStates() int {
	return len(m.transitions)
}

func (m *Hashed) Transitions(p StateId) chan WordStateWeight {
	ch := make(chan WordStateWeight)
	go func() {
		m.transitions[p].each(func(e xqwEntry) {
			ch <- WordStateWeight{e.Key, e.Value.State, e.Value.Weight}
		})
		close(ch)
	}()
	return ch
}

func (m *Hashed) header() (header []byte, err error) {
	numBuckets := make([]int, len(m.transitions))
	for i, t := range m.transitions {
		numBuckets[i] = len(t)
	}
	return encodeHeader(m.vocab, m.bos, m.eos, m.order, m.depth, numBuckets)
}

func (m *Hashed) WriteBinary(path string) (err error) {
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
	if err = bw.WriteString(MAGIC_HASHED, 0); err != nil {
		return
	}
	// Header
	header, err := m.header()
	if err != nil {
		return
	}
	if err = bw.Write(header, 0); err != nil {
		return
	}
	// Raw entries.

	// Go over the transitions to see how many entries there are in total.
	numEntries := int64(0)
	for _, i := range m.transitions {
		numEntries += int64(len(i))
	}
	// Ask for a large new block and then incrementally write out the
	// data.
	align := int64(unsafe.Alignof(xqwEntry{}))
	size := int64(unsafe.Sizeof(xqwEntry{}))
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

func IsHashedBinary(raw []byte) bool {
	return hasMagic(raw, MAGIC_HASHED)
}

// UnsafeParseBinary makes m a view of raw, which must stay valid
// (and unmodified) as long as m is in use.
func (m *Hashed) UnsafeParseBinary(raw []byte) error {
	bs := newBlockSlicer(raw)

	magic, err := bs.Slice()
	if err != nil {
		return err
	}
	if string(magic) != MAGIC_HASHED {
		return errors.New("not a FSLM hashed binary file")
	}

	header, err := bs.Slice()
	if err != nil {
		return err
	}

	var numBuckets []int
	m.vocab, m.bos, m.eos, m.bosId, m.eosId, m.order, m.depth, numBuckets, err = decodeHeader(header)
	if err != nil {
		return err
	}

	entryBytes, err := bs.Slice()
	if err != nil {
		return err
	}
	entrySlice, err := fromBytes[xqwEntry](entryBytes)
	if err != nil {
		return err
	}
	m.transitions = make([]xqwBuckets, len(numBuckets))
	low := 0
	for i, n := range numBuckets {
		if low+n > len(entrySlice) {
			return errors.Errorf("state %d needs %d buckets but only %d entries are left", i, n, len(entrySlice)-low)
		}
		m.transitions[i] = xqwBuckets(entrySlice[low : low+n : low+n])
		low += n
	}
	return nil
}

func hasMagic(raw []byte, magic string) bool {
	magicBytes, err := newBlockSlicer(raw).Slice()
	return err == nil && string(magicBytes) == magic
}

// encodeHeader and decodeHeader deal with the gob encoded part that
// Hashed and Sorted share.
func encodeHeader(vocab *Vocab, bos, eos string, order int, depth []uint8, sizes []int) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, i := range []interface{}{vocab, bos, eos, order, depth, sizes} {
		if err := enc.Encode(i); err != nil {
			return nil, errors.Wrap(err, "encoding header")
		}
	}
	return buf.Bytes(), nil
}

func decodeHeader(header []byte) (vocab *Vocab, bos, eos string, bosId, eosId WordId, order int, depth []uint8, sizes []int, err error) {
	dec := gob.NewDecoder(bytes.NewReader(header))
	vocab = new(Vocab)
	for _, i := range []interface{}{vocab, &bos, &eos, &order, &depth, &sizes} {
		if err = dec.Decode(i); err != nil {
			err = errors.Wrap(err, "decoding header")
			return
		}
	}
	if bosId = vocab.IdOf(bos); bosId == WORD_NIL {
		err = errors.New(bos + " not in vocabulary")
		return
	}
	if eosId = vocab.IdOf(eos); eosId == WORD_NIL {
		err = errors.New(eos + " not in vocabulary")
		return
	}
	if len(depth) != len(sizes) {
		err = errors.Errorf("%d state orders for %d states", len(depth), len(sizes))
	}
	return
}
