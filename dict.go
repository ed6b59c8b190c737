package lmmacro

import (
	"sync"

	"github.com/kho/lmmacro/fslm"
)

// MicroDict assigns codes to micro tokens. It always grows: new tokens
// get new codes, which are beyond any loaded MappingTable and hence map
// to the macro OOV code. It is safe for concurrent use.
type MicroDict struct {
	mu sync.RWMutex
	v  *fslm.Vocab
}

func NewMicroDict() *MicroDict {
	return &MicroDict{v: fslm.NewVocab(nil)}
}

// Encode returns the code of s, adding s when it is new.
func (d *MicroDict) Encode(s string) MicroCode {
	d.mu.RLock()
	x := d.v.IdOf(s)
	d.mu.RUnlock()
	if x != fslm.WORD_NIL {
		return MicroCode(x)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return MicroCode(d.v.IdOrAdd(s))
}

// IdOf returns the code of s or MICRO_NIL when s was never encoded.
func (d *MicroDict) IdOf(s string) MicroCode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return MicroCode(d.v.IdOf(s))
}

// StringOf returns the token of c. Unknown codes are fslm.UNK.
func (d *MicroDict) StringOf(c MicroCode) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.v.StringOf(fslm.WordId(c))
}

func (d *MicroDict) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int(d.v.Bound())
}

// EncodeAll encodes a sequence of tokens.
func (d *MicroDict) EncodeAll(tokens []string) MicroNgram {
	ngram := make(MicroNgram, len(tokens))
	for i, s := range tokens {
		ngram[i] = d.Encode(s)
	}
	return ngram
}
