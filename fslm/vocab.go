package fslm

import (
	"bytes"
	"encoding/gob"
)

// Dictionary is what the scoring layers need from a vocabulary. Vocab
// implements it.
type Dictionary interface {
	// IdOf returns the code of s or WORD_NIL when s is unknown.
	IdOf(s string) WordId
	// StringOf returns the string of x. Codes that are not part of the
	// dictionary decode to UNK.
	StringOf(x WordId) string
	// Encode is IdOf for a fixed dictionary. A growable dictionary adds
	// unknown strings instead. Either way the result is never
	// WORD_NIL unless OOV() is.
	Encode(s string) WordId
	// OOV is the code unknown words are mapped to.
	OOV() WordId
	// Bound returns the largest code + 1.
	Bound() WordId
}

// Vocab is the mapping between strings and WordIds.
type Vocab struct {
	id2str   []string
	str2id   map[string]WordId
	growable bool
}

// NewVocab creates a Vocab whose first words are words, in order. It
// panics when words has duplicates.
func NewVocab(words []string) *Vocab {
	v := &Vocab{str2id: map[string]WordId{}}
	for _, s := range words {
		if _, ok := v.str2id[s]; ok {
			panic("NewVocab: duplicate word " + s)
		}
		v.IdOrAdd(s)
	}
	return v
}

// Copy returns a new Vocab that can be modified without changing v.
func (v *Vocab) Copy() *Vocab {
	var c = *v

	// We must copy this because if the user makes multiple copies and
	// modifies each of them, the shared slice will be in a corrupted
	// state.
	c.id2str = make([]string, len(v.id2str))
	copy(c.id2str, v.id2str)

	c.str2id = make(map[string]WordId, len(v.str2id))
	for k, v := range v.str2id {
		c.str2id[k] = v
	}

	return &c
}

// Bound returns the largest WordId + 1.
func (v *Vocab) Bound() WordId { return WordId(len(v.id2str)) }

// IdOf looks up the WordId of the given string. If s is not present,
// WORD_NIL is returned.
func (v *Vocab) IdOf(s string) WordId {
	if i, ok := v.str2id[s]; ok {
		return i
	}
	return WORD_NIL
}

// StringOf looks up the string of the given WordId. Anything outside
// the vocabulary (WORD_NIL included) is UNK.
func (v *Vocab) StringOf(i WordId) string {
	if i >= v.Bound() {
		return UNK
	}
	return v.id2str[i]
}

// IdOrAdd looks up s to find its corresponding WordId. When s is not
// present, it adds it to the vocabulary regardless of the growable
// flag. This is not thread-safe since it may modify the vocabulary.
func (v *Vocab) IdOrAdd(s string) WordId {
	i, ok := v.str2id[s]
	if !ok {
		i = v.Bound()
		v.id2str = append(v.id2str, s)
		v.str2id[s] = i
	}
	return i
}

// SetGrowable switches Encode between adding unknown words and
// mapping them to OOV().
func (v *Vocab) SetGrowable(growable bool) { v.growable = growable }

func (v *Vocab) Growable() bool { return v.growable }

func (v *Vocab) Encode(s string) WordId {
	if v.growable {
		return v.IdOrAdd(s)
	}
	if i, ok := v.str2id[s]; ok {
		return i
	}
	return v.OOV()
}

// OOV returns the id of UNK if the vocabulary has it, WORD_NIL
// otherwise.
func (v *Vocab) OOV() WordId { return v.IdOf(UNK) }

// MarshalBinary serializes a Vocab. Usually Vocab are a few MBs at
// most so this should be fine.
func (v *Vocab) MarshalBinary() (data []byte, err error) {
	var buf bytes.Buffer
	if err = gob.NewEncoder(&buf).Encode(v.id2str); err != nil {
		return
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a Vocab. The Vocab will be in an
// invalid state an error is returned.
func (v *Vocab) UnmarshalBinary(data []byte) (err error) {
	if err = gob.NewDecoder(bytes.NewReader(data)).Decode(&v.id2str); err != nil {
		return
	}
	v.str2id = make(map[string]WordId, len(v.id2str))
	for i, s := range v.id2str {
		v.str2id[s] = WordId(i)
	}
	v.growable = false
	return nil
}
