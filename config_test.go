package lmmacro

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig(t *testing.T) {
	for _, i := range []struct {
		Text     string
		Expected Config
	}{
		{"LMMACRO 3 1 false\nbase.arpa\ntags.map\n",
			Config{MaxOrder: 3, Field: 1, Model: "base.arpa", Map: "tags.map"}},
		{"lmmacro 0 -1 TRUE\n\nbase.lm\n\n  tags.map  \n",
			Config{Field: FIELD_WHOLE, Collapse: true, Model: "base.lm", Map: "tags.map"}},
		{"LMMACRO 4 21 false\nbase.lm\ntags.map\nlemmas.classes\n",
			Config{MaxOrder: 4, Field: 21, Model: "base.lm", Map: "tags.map", Classes: "lemmas.classes"}},
		{"LMMACRO 2 -2 false\nbase.lm\n",
			Config{MaxOrder: 2, Field: FIELD_ONE_TO_ONE, Model: "base.lm"}},
	} {
		cfg, err := ParseConfig(strings.NewReader(i.Text), "test.lmmacro")
		if err != nil {
			t.Errorf("%q: unexpected error: %v", i.Text, err)
			continue
		}
		if cfg != i.Expected {
			t.Errorf("%q: expected %+v; got %+v", i.Text, i.Expected, cfg)
		}
	}
}

func TestParseConfigErrors(t *testing.T) {
	for _, i := range []struct {
		Text string
		Line int
	}{
		{"", 0},
		{"\n\n", 0},
		{"LMMACRO 3 1\nbase.lm\n", 1},
		{"\nFOO 3 1 true\nbase.lm\n", 2},
		{"LMMACRO x 1 true\nbase.lm\n", 1},
		{"LMMACRO 3 one true\nbase.lm\n", 1},
		{"LMMACRO 3 1 yes\nbase.lm\n", 1},
		{"LMMACRO 3 1 false\n", 0},
		{"LMMACRO 3 -1 true\nbase.lm\n", 0},
		{"LMMACRO 3 -1 false\nbase.lm\ntags.map\nlemmas.classes\n", 0},
		{"LMMACRO 3 21 false\nbase.lm\ntags.map\nlemmas.classes\n\nextra\n", 6},
		{"LMMACRO -1 1 false\nbase.lm\n", 0},
		{"LMMACRO 3 -3 false\nbase.lm\n", 0},
		{"LMMACRO 3 100 false\nbase.lm\n", 0},
	} {
		_, err := ParseConfig(strings.NewReader(i.Text), "bad.lmmacro")
		cerr, ok := err.(*ConfigError)
		if !ok {
			t.Errorf("%q: expected *ConfigError; got %v", i.Text, err)
			continue
		}
		if cerr.Line != i.Line {
			t.Errorf("%q: expected error at line %d; got %d (%v)", i.Text, i.Line, cerr.Line, cerr)
		}
	}
}

func TestParseYAMLConfig(t *testing.T) {
	cfg, err := ParseYAMLConfig(strings.NewReader("order: 2\nfield: 21\nlm: base.lm\nmap: tags.map\nclasses: lemmas.classes\ncache: 100\n"), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := Config{MaxOrder: 2, Field: 21, Model: "base.lm", Map: "tags.map", Classes: "lemmas.classes", CacheSize: 100}
	if cfg != expected {
		t.Errorf("expected %+v; got %+v", expected, cfg)
	}

	cfg, err = ParseYAMLConfig(strings.NewReader("lm: base.lm\nmap: tags.map\n"), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Field != FIELD_WHOLE {
		t.Errorf("expected default field %d; got %d", FIELD_WHOLE, cfg.Field)
	}

	for _, i := range []string{
		"",
		"lm: base.lm\nunknown: 1\n",
		"lm: [base.lm\n",
		"field: 1\n",
		"lm: base.lm\ncollapse: true\n",
		"lm: base.lm\ncache: -1\n",
	} {
		if _, err := ParseYAMLConfig(strings.NewReader(i), "bad.yaml"); err == nil {
			t.Errorf("%q: expected error", i)
		} else if _, ok := err.(*ConfigError); !ok {
			t.Errorf("%q: expected *ConfigError; got %v", i, err)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "elsewhere", "tags.map")
	text := filepath.Join(dir, "model.lmmacro")
	writeFile(t, text, "LMMACRO 3 -1 true\nlm/base.arpa\n"+abs+"\n")
	cfg, err := ReadConfig(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e := filepath.Join(dir, "lm", "base.arpa"); cfg.Model != e {
		t.Errorf("expected model %q; got %q", e, cfg.Model)
	}
	if cfg.Map != abs {
		t.Errorf("expected map %q; got %q", abs, cfg.Map)
	}
	if cfg.Classes != "" {
		t.Errorf("expected no classes; got %q", cfg.Classes)
	}

	yml := filepath.Join(dir, "model.yml")
	writeFile(t, yml, "lm: base.arpa\nfield: 1\n")
	if cfg, err = ReadConfig(yml); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e := filepath.Join(dir, "base.arpa"); cfg.Model != e || cfg.Field != 1 {
		t.Errorf("expected model %q with field 1; got %+v", e, cfg)
	}

	if _, err := ReadConfig(filepath.Join(dir, "missing.lmmacro")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestIsConfigFile(t *testing.T) {
	dir := t.TempDir()
	lower := filepath.Join(dir, "lower.cfg")
	writeFile(t, lower, "lmmacro 3 1 false\nbase.lm\n")
	empty := filepath.Join(dir, "empty")
	writeFile(t, empty, "")
	for _, i := range []struct {
		Path     string
		Expected bool
	}{
		{filepath.Join("testdata", "tags.lmmacro"), true},
		{filepath.Join("testdata", "tags.yaml"), true},
		{filepath.Join("testdata", "tags.arpa"), false},
		{lower, true},
		{empty, false},
	} {
		b, err := IsConfigFile(i.Path)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", i.Path, err)
			continue
		}
		if b != i.Expected {
			t.Errorf("%s: expected %v; got %v", i.Path, i.Expected, b)
		}
	}
	if _, err := IsConfigFile(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestConfigErrorMessage(t *testing.T) {
	for _, i := range []struct {
		Err      ConfigError
		Expected string
	}{
		{ConfigError{Msg: "broken"}, "broken"},
		{ConfigError{Path: "a.map", Msg: "broken"}, "a.map: broken"},
		{ConfigError{Path: "a.map", Line: 3, Msg: "broken"}, "a.map:3: broken"},
	} {
		if s := i.Err.Error(); s != i.Expected {
			t.Errorf("expected %q; got %q", i.Expected, s)
		}
	}
}
