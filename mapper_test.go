package lmmacro

import (
	"strings"
	"testing"

	"github.com/kho/lmmacro/fslm"
)

func TestChunkMarkers(t *testing.T) {
	for _, i := range []struct {
		Tag                      string
		Opens, Closes, Continues bool
	}{
		{"NP(", true, false, false},
		{"(NP", true, false, false},
		{"(NP)", false, false, false},
		{"NP)", false, true, false},
		{"NP+", false, false, true},
		{"(NP+", true, false, true},
		{"NP", false, false, false},
		{"", false, false, false},
	} {
		if b := opensChunk(i.Tag); b != i.Opens {
			t.Errorf("%q: expected opensChunk = %v; got %v", i.Tag, i.Opens, b)
		}
		if b := closesChunk(i.Tag); b != i.Closes {
			t.Errorf("%q: expected closesChunk = %v; got %v", i.Tag, i.Closes, b)
		}
		if b := continuesChunk(i.Tag); b != i.Continues {
			t.Errorf("%q: expected continuesChunk = %v; got %v", i.Tag, i.Continues, b)
		}
	}

	for _, i := range []struct {
		Prev, Curr string
		Expected   bool
	}{
		{"NP(", "NP)", true},
		{"NP(", "NP+", true},
		{"NP+", "NP+", true},
		{"NP+", "NP)", true},
		{"(NP", "NP)", true},
		{"NP)", "NP+", false},
		{"NP(", "NP(", false},
		{"NP", "NP)", false},
		{"(NP)", "NP)", false},
	} {
		if b := chunkContinuation(i.Prev, i.Curr); b != i.Expected {
			t.Errorf("chunkContinuation(%q, %q): expected %v; got %v", i.Prev, i.Curr, i.Expected, b)
		}
	}
}

var lexVocab = []string{fslm.BOS, fslm.EOS, "NOUN", "VERB", "DET",
	"NOUN_casa", "VERB_ir", "NOUN_class2", "VERB_class0"}

// mapperTokens parses "tag" or "lemma|tag" tokens.
func mapperTokens(dict *MicroDict, s string) []MicroToken {
	var tokens []MicroToken
	for _, f := range strings.Fields(s) {
		tok := MicroToken{Tag: f}
		if j := strings.IndexByte(f, '|'); j >= 0 {
			tok = MicroToken{Tag: f[j+1:], Lemma: f[:j]}
		}
		tok.Code = dict.IdOf(tok.Tag)
		tokens = append(tokens, tok)
	}
	return tokens
}

func decodeAll(d fslm.Dictionary, ngram MacroNgram) string {
	ss := make([]string, len(ngram))
	for i, x := range ngram {
		ss[i] = d.StringOf(x)
	}
	return strings.Join(ss, " ")
}

func TestMapChunked(t *testing.T) {
	dict, vocab := NewMicroDict(), fslm.NewVocab(lexVocab)
	table, err := LoadMap(strings.NewReader(tagsMap), "test.map", dict, vocab, false, FIELD_LEXICAL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plain := NewMapper(table, vocab, nil)
	lemma := NewMapper(table, vocab, LemmaLexicalizer{})
	class := NewMapper(table, vocab, ClassLexicalizer{"casa": 2})
	for _, i := range []struct {
		Tokens               string
		Plain, Lemma, Class string
	}{
		{"<s> DT", "<s> DET", "<s> <unk>", "<s> <unk>"},
		{"la|NN( casa|NN) ir|VB", "NOUN VERB", "NOUN_casa VERB_ir", "NOUN_class2 VERB_class0"},
		{"la|NN( x|NN+ casa|NN) </s>", "NOUN </s>", "NOUN_casa </s>", "NOUN_class2 </s>"},
		// A chunk that is still open is not lexicalized.
		{"ir|VB la|NN(", "VERB NOUN", "VERB_ir NOUN", "VERB_class0 NOUN"},
		{"casa|NN casa|NN", "NOUN NOUN", "NOUN_casa NOUN_casa", "NOUN_class2 NOUN_class2"},
		{"casa|NN) casa|NN(", "NOUN NOUN", "NOUN_casa NOUN", "NOUN_class2 NOUN"},
	} {
		tokens := mapperTokens(dict, i.Tokens)
		if s := decodeAll(vocab, plain.MapChunked(tokens)); s != i.Plain {
			t.Errorf("%q: expected %q; got %q", i.Tokens, i.Plain, s)
		}
		if s := decodeAll(vocab, lemma.MapChunked(tokens)); s != i.Lemma {
			t.Errorf("%q with lemmas: expected %q; got %q", i.Tokens, i.Lemma, s)
		}
		if s := decodeAll(vocab, class.MapChunked(tokens)); s != i.Class {
			t.Errorf("%q with classes: expected %q; got %q", i.Tokens, i.Class, s)
		}
	}
}

func TestLoadClasses(t *testing.T) {
	classes, err := LoadClasses(strings.NewReader("casa 2\n\nir\t7\n"), "test.classes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, i := range []struct {
		Tag, Lemma, Expected string
	}{
		{"NOUN", "casa", "NOUN_class2"},
		{"VERB", "ir", "VERB_class7"},
		{"NOUN", "perro", "NOUN_class0"},
	} {
		if s := classes.Lexicalize(i.Tag, i.Lemma); s != i.Expected {
			t.Errorf("(%q, %q): expected %q; got %q", i.Tag, i.Lemma, i.Expected, s)
		}
	}
	if s := (LemmaLexicalizer{}).Lexicalize("NOUN", "casa"); s != "NOUN_casa" {
		t.Errorf("expected NOUN_casa; got %q", s)
	}

	for _, i := range []struct {
		Classes string
		Line    int
	}{
		{"casa 2 3\n", 1},
		{"casa 2\nir\n", 2},
		{"casa two\n", 1},
	} {
		_, err := LoadClasses(strings.NewReader(i.Classes), "bad.classes")
		if cerr, ok := err.(*ConfigError); !ok || cerr.Line != i.Line {
			t.Errorf("%q: expected *ConfigError at line %d; got %v", i.Classes, i.Line, err)
		}
	}
}
