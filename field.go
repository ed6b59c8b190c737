package lmmacro

import (
	"strings"

	"github.com/kho/lmmacro/fslm"
)

// Special values of Config.Field.
const (
	// The whole token is mapped through the map file.
	FIELD_WHOLE = -1
	// Tokens are mapped one to one through the map file, without
	// merging chunks.
	FIELD_ONE_TO_ONE = -2
	// Fields from FIELD_LEXICAL on select a tag (tens digit) and a
	// lemma (units digit); see Lexicalizer.
	FIELD_LEXICAL = 10
	// Separator of the fields of a token.
	FIELD_SEP = '#'
)

// isSpecial tells whether token passes through field selection
// unchanged.
func isSpecial(token string) bool {
	return token == fslm.BOS || token == fslm.EOS || token == fslm.UNK
}

// SelectField returns the field-th '#'-separated part of token. Empty
// parts do not count, so "a##b" has two parts. A field beyond the last
// part gives fslm.UNK. Sentence boundaries and fslm.UNK are returned as
// they are, and so is everything when field < 0.
func SelectField(token string, field int) string {
	if field < 0 || isSpecial(token) {
		return token
	}
	rest := token
	for i := 0; ; i++ {
		rest = strings.TrimLeft(rest, string(FIELD_SEP))
		if rest == "" {
			return fslm.UNK
		}
		part := rest
		if j := strings.IndexByte(rest, FIELD_SEP); j >= 0 {
			part, rest = rest[:j], rest[j:]
		} else {
			rest = ""
		}
		if i == field {
			return part
		}
	}
}

// SelectTagLemma splits a lexicalized field selector into the tag and
// lemma of token. A missing tag makes both fslm.UNK; a missing lemma
// makes just the lemma fslm.UNK.
func SelectTagLemma(token string, field int) (tag, lemma string) {
	if isSpecial(token) {
		return token, token
	}
	tag = SelectField(token, field/10)
	if tag == fslm.UNK {
		return fslm.UNK, fslm.UNK
	}
	return tag, SelectField(token, field%10)
}
