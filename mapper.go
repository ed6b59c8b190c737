package lmmacro

import (
	"github.com/kho/lmmacro/fslm"
)

// MapEach maps every token of ngram through the table.
func (t *MappingTable) MapEach(ngram MicroNgram) MacroNgram {
	out := make(MacroNgram, len(ngram))
	for i, c := range ngram {
		out[i] = t.Lookup(c)
	}
	return out
}

// Chunk marker predicates on micro tag surfaces.

func lastByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

func firstByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

// opensChunk: "X(" or "(X" not closed on the same tag.
func opensChunk(s string) bool {
	return lastByte(s) == MARK_OPEN || (firstByte(s) == MARK_OPEN && lastByte(s) != MARK_CLOSE)
}

// closesChunk: "X)" but not "(X)".
func closesChunk(s string) bool {
	return lastByte(s) == MARK_CLOSE && firstByte(s) != MARK_OPEN
}

func continuesChunk(s string) bool {
	return lastByte(s) == MARK_CONTINUE
}

// insideChunk tells whether a token leaves a chunk open after it.
func insideChunk(s string) bool {
	return opensChunk(s) || continuesChunk(s)
}

// chunkContinuation tells whether curr, right after prev, belongs to
// the same chunk judging by their markers.
func chunkContinuation(prev, curr string) bool {
	return (opensChunk(prev) && closesChunk(curr)) ||
		(opensChunk(prev) && continuesChunk(curr)) ||
		(continuesChunk(prev) && continuesChunk(curr)) ||
		(continuesChunk(prev) && closesChunk(curr))
}

// MicroToken is a micro token on its way to macro space.
type MicroToken struct {
	// The micro tag whose markers count.
	Tag  string
	Code MicroCode
	// Only used when lexicalizing.
	Lemma string
}

// Mapper turns micro tokens into macro codes in one pass, merging the
// tokens of a chunk as it goes.
type Mapper struct {
	table *MappingTable
	macro fslm.Dictionary
	// Optional; nil maps tags without lemmas.
	lex Lexicalizer
}

func NewMapper(table *MappingTable, macro fslm.Dictionary, lex Lexicalizer) *Mapper {
	return &Mapper{table, macro, lex}
}

// macroOf is the macro code of a single token, lexicalized when the
// token does not leave a chunk open.
func (m *Mapper) macroOf(tok MicroToken) MacroCode {
	x := m.table.Lookup(tok.Code)
	if m.lex == nil || isSpecial(tok.Tag) || insideChunk(tok.Tag) {
		return x
	}
	return m.macro.Encode(m.lex.Lexicalize(m.macro.StringOf(x), tok.Lemma))
}

// MapChunked maps tokens oldest first. A token with the same macro tag
// as its predecessor that continues the predecessor's chunk is
// dropped; when lexicalizing it replaces the predecessor's output
// instead, so that the lemma of the chunk's last token counts.
func (m *Mapper) MapChunked(tokens []MicroToken) MacroNgram {
	out := make(MacroNgram, 0, len(tokens))
	for i, tok := range tokens {
		x := m.macroOf(tok)
		if i == 0 {
			out = append(out, x)
			continue
		}
		prev := tokens[i-1]
		if m.table.Lookup(prev.Code) != m.table.Lookup(tok.Code) || !chunkContinuation(prev.Tag, tok.Tag) {
			out = append(out, x)
		} else if m.lex != nil {
			out[len(out)-1] = x
		}
	}
	return out
}

// mapEach maps every token on its own.
func (m *Mapper) mapEach(tokens []MicroToken) MacroNgram {
	out := make(MacroNgram, len(tokens))
	for i, tok := range tokens {
		out[i] = m.macroOf(tok)
	}
	return out
}
