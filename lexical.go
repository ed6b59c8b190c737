package lmmacro

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Lexicalizer joins a macro tag with the lemma of the token it came
// from. A Mapper without one maps plain tags.
type Lexicalizer interface {
	Lexicalize(tag, lemma string) string
}

// LemmaLexicalizer gives "TAG_lemma".
type LemmaLexicalizer struct{}

func (LemmaLexicalizer) Lexicalize(tag, lemma string) string {
	return tag + "_" + lemma
}

// ClassLexicalizer gives "TAG_class<N>" where N is the class of the
// lemma. Unknown lemmas are in class 0.
type ClassLexicalizer map[string]int

func (c ClassLexicalizer) Lexicalize(tag, lemma string) string {
	return tag + "_class" + strconv.Itoa(c[lemma])
}

// LoadClasses reads a lexical classes file with one "lemma classIndex"
// pair per line. path is only used in error messages.
func LoadClasses(in io.Reader, path string) (ClassLexicalizer, error) {
	classes := ClassLexicalizer{}
	scanner := bufio.NewScanner(in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, &ConfigError{path, lineNo, "wrong format of lexical classes file: expect 2 fields"}
		}
		class, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, &ConfigError{path, lineNo, "class index is not an integer: " + fields[1]}
		}
		classes[fields[0]] = class
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading lexical classes %s", path)
	}
	glog.Infof("loaded %d lexical classes from %s", len(classes), path)
	return classes, nil
}
