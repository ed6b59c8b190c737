package lmmacro

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigError reports a broken configuration: a bad config file, map
// file or lexical classes file. The adapter cannot be built.
type ConfigError struct {
	Path string
	// 0 when the error is not about a particular line.
	Line int
	Msg  string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Path == "":
		return e.Msg
	case e.Line == 0:
		return e.Path + ": " + e.Msg
	default:
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
	}
}

// Config holds the settings of a Macro adapter. The text format is
//
//	LMMACRO <maxOrder> <field> <true|false>
//	<base model path>
//	[<map path>]
//	[<lexical classes path>]
//
// and the same settings can be given as YAML (see the yaml tags).
type Config struct {
	// Longest macro n-gram to query; 0 means the base model's order.
	MaxOrder int `yaml:"order"`
	// Selected field, FIELD_WHOLE or FIELD_ONE_TO_ONE; >= FIELD_LEXICAL
	// lexicalizes.
	Field int `yaml:"field"`
	// Whether tokens continuing a chunk are collapsed.
	Collapse bool `yaml:"collapse"`
	// Base model, ARPA or binary.
	Model string `yaml:"lm"`
	// Optional map and lexical classes files.
	Map     string `yaml:"map"`
	Classes string `yaml:"classes"`
	// Entries of the base model's score cache; 0 disables it.
	CacheSize int `yaml:"cache"`
}

// HEADER is the first word of a text config.
const HEADER = "LMMACRO"

const headerUsage = "correct format: LMMACRO lmsize field [true|false]"

func isHeader(s string) bool {
	return s == HEADER || s == strings.ToLower(HEADER)
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "true", "TRUE":
		return true, true
	case "false", "FALSE":
		return false, true
	}
	return false, false
}

// ParseConfig reads a text config. path is only used in error messages.
func ParseConfig(in io.Reader, path string) (Config, error) {
	var (
		cfg   Config
		lines []string
		nums  []int
	)
	scanner := bufio.NewScanner(in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(lines) == 0 {
			if len(fields) != 4 || !isHeader(fields[0]) {
				return cfg, &ConfigError{path, lineNo, "wrong header format; " + headerUsage}
			}
			var err error
			if cfg.MaxOrder, err = strconv.Atoi(fields[1]); err != nil {
				return cfg, &ConfigError{path, lineNo, "bad lmsize " + strconv.Quote(fields[1]) + "; " + headerUsage}
			}
			if cfg.Field, err = strconv.Atoi(fields[2]); err != nil {
				return cfg, &ConfigError{path, lineNo, "bad field " + strconv.Quote(fields[2]) + "; " + headerUsage}
			}
			var ok bool
			if cfg.Collapse, ok = parseBool(fields[3]); !ok {
				return cfg, &ConfigError{path, lineNo, "bad collapse flag " + strconv.Quote(fields[3]) + "; " + headerUsage}
			}
		}
		lines = append(lines, fields[0])
		nums = append(nums, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	switch {
	case len(lines) == 0:
		return cfg, &ConfigError{path, 0, "empty configuration; " + headerUsage}
	case len(lines) < 2:
		return cfg, &ConfigError{path, 0, "missing base model file name"}
	case len(lines) > 4:
		return cfg, &ConfigError{path, nums[4], "unexpected line after the lexical classes file name"}
	}
	cfg.Model = lines[1]
	if len(lines) > 2 {
		cfg.Map = lines[2]
	}
	if len(lines) > 3 {
		cfg.Classes = lines[3]
	}
	return cfg, cfg.validateFiles(path)
}

// ParseYAMLConfig reads a YAML config. path is only used in error
// messages.
func ParseYAMLConfig(in io.Reader, path string) (Config, error) {
	cfg := Config{Field: FIELD_WHOLE}
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if err == io.EOF {
			return cfg, &ConfigError{path, 0, "empty configuration"}
		}
		return cfg, &ConfigError{path, 0, err.Error()}
	}
	return cfg, cfg.validateFiles(path)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ReadConfig reads a config file, YAML when the name ends in .yaml or
// .yml. Relative paths in it are taken relative to the config file.
func ReadConfig(path string) (Config, error) {
	in, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer in.Close()
	var cfg Config
	if isYAML(path) {
		cfg, err = ParseYAMLConfig(in, path)
	} else {
		cfg, err = ParseConfig(in, path)
	}
	if err != nil {
		return cfg, err
	}
	dir := filepath.Dir(path)
	for _, p := range []*string{&cfg.Model, &cfg.Map, &cfg.Classes} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return cfg, nil
}

// IsConfigFile tells whether path looks like an adapter config rather
// than a model.
func IsConfigFile(path string) (bool, error) {
	if isYAML(path) {
		return true, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	var head [len(HEADER) + 1]byte
	n, _ := io.ReadFull(f, head[:])
	fields := strings.Fields(string(head[:n]))
	return len(fields) > 0 && isHeader(fields[0]), nil
}

// Validate checks the settings that do not involve any file.
func (c Config) Validate(path string) error {
	fail := func(msg string) error { return &ConfigError{Path: path, Msg: msg} }
	switch {
	case c.MaxOrder < 0:
		return fail("lmsize must not be negative")
	case c.Field < FIELD_ONE_TO_ONE:
		return fail(fmt.Sprintf("invalid field %d", c.Field))
	case c.Field >= 10*FIELD_LEXICAL:
		return fail(fmt.Sprintf("invalid lexicalized field %d: tag and lemma indexes are single digits", c.Field))
	case c.CacheSize < 0:
		return fail("cache size must not be negative")
	}
	return nil
}

// validateFiles is Validate plus the checks on file names.
func (c Config) validateFiles(path string) error {
	if err := c.Validate(path); err != nil {
		return err
	}
	fail := func(msg string) error { return &ConfigError{Path: path, Msg: msg} }
	switch {
	case c.Model == "":
		return fail("missing base model file name")
	case c.Collapse && c.Map == "":
		return fail("a map is required to collapse chunks")
	case c.Classes != "" && c.Field < FIELD_LEXICAL:
		return fail(fmt.Sprintf("lexical classes need a lexicalized field (>= %d)", FIELD_LEXICAL))
	}
	return nil
}
