package lmmacro

import (
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/kho/lmmacro/fslm"
)

// Macro scores micro n-grams with a macro-level base model. Each query
// is transformed into a macro n-gram (field selection, chunk
// collapsing, then mapping) and forwarded to the base model. A Macro
// is an NgramModel[MicroCode] and is safe for concurrent queries once
// built.
type Macro struct {
	cfg    Config
	base   BaseModel
	macro  fslm.Dictionary
	dict   *MicroDict
	table  *MappingTable
	mapper *Mapper
	order  int
	// Backing of a base model opened by Load.
	closer io.Closer
}

// New builds an adapter on base. mapping and classes are the contents
// of the map and lexical classes files; either can be nil. cfg.Map and
// cfg.Classes are only used to name them in messages.
func New(base BaseModel, cfg Config, mapping, classes io.Reader) (*Macro, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	if cfg.Collapse && mapping == nil {
		return nil, &ConfigError{Path: cfg.Map, Msg: "a map is required to collapse chunks"}
	}
	if classes != nil && cfg.Field < FIELD_LEXICAL {
		return nil, &ConfigError{Path: cfg.Classes, Msg: "lexical classes need a lexicalized field"}
	}

	m := &Macro{cfg: cfg, base: base, macro: base.Dict(), dict: NewMicroDict()}
	if mapping != nil {
		table, err := LoadMap(mapping, cfg.Map, m.dict, m.macro, cfg.Collapse, cfg.Field)
		if err != nil {
			return nil, err
		}
		m.table = table
	} else {
		m.table = newMappingTable(m.macro.OOV(), false)
	}

	var lex Lexicalizer
	if cfg.Field >= FIELD_LEXICAL {
		if classes != nil {
			c, err := LoadClasses(classes, cfg.Classes)
			if err != nil {
				return nil, err
			}
			lex = c
		} else {
			lex = LemmaLexicalizer{}
		}
	}
	m.mapper = NewMapper(m.table, m.macro, lex)

	m.order = base.MaxOrder()
	if cfg.MaxOrder > 0 && cfg.MaxOrder < m.order {
		m.order = cfg.MaxOrder
	}

	switch {
	case cfg.Field == FIELD_WHOLE:
		glog.Info("no selected field: the whole string is used")
	case cfg.Field == FIELD_ONE_TO_ONE:
		glog.Info("one-to-one mapping of whole tokens")
	case cfg.Field >= FIELD_LEXICAL:
		glog.Infof("tag field %d lexicalized with lemma field %d", cfg.Field/10, cfg.Field%10)
	default:
		glog.Infof("selected field n. %d", cfg.Field)
	}
	if cfg.Collapse {
		glog.Info("collapse is enabled")
	} else {
		glog.Info("collapse is disabled")
	}
	glog.Infof("querying up to %d-grams", m.order)
	return m, nil
}

// Load builds an adapter from a config file, loading the base model
// with fslm.Open. Close the adapter to release the base model.
func Load(path string) (*Macro, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	backend, closer, err := fslm.Open(cfg.Model)
	if err != nil {
		return nil, errors.Wrapf(err, "loading base model of %s", path)
	}
	m, err := load(backend, cfg)
	if err != nil {
		closer.Close()
		return nil, err
	}
	m.closer = closer
	return m, nil
}

func load(backend fslm.Backend, cfg Config) (*Macro, error) {
	base, err := fslm.NewScorer(backend, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	var mapping, classes io.Reader
	if cfg.Map != "" {
		f, err := fslm.OpenFile(cfg.Map)
		if err != nil {
			return nil, errors.Wrap(err, "opening map")
		}
		defer f.Close()
		mapping = f
	}
	if cfg.Classes != "" {
		f, err := fslm.OpenFile(cfg.Classes)
		if err != nil {
			return nil, errors.Wrap(err, "opening lexical classes")
		}
		defer f.Close()
		classes = f
	}
	return New(base, cfg, mapping, classes)
}

// Close releases the base model opened by Load. The adapter must not
// be used afterwards.
func (m *Macro) Close() error {
	if m.closer == nil {
		return nil
	}
	err := m.closer.Close()
	m.closer = nil
	return err
}

func (m *Macro) MaxOrder() int { return m.order }

func (m *Macro) Config() Config { return m.cfg }

func (m *Macro) Base() BaseModel { return m.base }

// Dict is the dictionary of the base model.
func (m *Macro) Dict() fslm.Dictionary { return m.macro }

func (m *Macro) MicroDict() *MicroDict { return m.dict }

func (m *Macro) Table() *MappingTable { return m.table }

// Encode returns the micro code of a token, adding it if it is new.
func (m *Macro) Encode(w string) MicroCode { return m.dict.Encode(w) }

func (m *Macro) Decode(c MicroCode) string { return m.dict.StringOf(c) }

// tokens prepares ngram for mapping: the selected field of each token
// becomes its tag.
func (m *Macro) tokens(ngram MicroNgram) []MicroToken {
	field := m.cfg.Field
	tokens := make([]MicroToken, len(ngram))
	for i, c := range ngram {
		s := m.dict.StringOf(c)
		switch {
		case field >= FIELD_LEXICAL:
			tag, lemma := SelectTagLemma(s, field)
			tokens[i] = MicroToken{tag, m.dict.IdOf(tag), lemma}
		case field >= 0:
			tag := SelectField(s, field)
			tokens[i] = MicroToken{Tag: tag, Code: m.dict.IdOf(tag)}
		default:
			tokens[i] = MicroToken{Tag: s, Code: c}
		}
	}
	return tokens
}

// passthrough carries tokens into macro space by their tag when there
// is no map.
func (m *Macro) passthrough(tokens []MicroToken) MacroNgram {
	out := make(MacroNgram, len(tokens))
	for i, tok := range tokens {
		out[i] = m.macro.Encode(tok.Tag)
	}
	return out
}

func (m *Macro) truncate(ngram MacroNgram) MacroNgram {
	if len(ngram) > m.order {
		return ngram[len(ngram)-m.order:]
	}
	return ngram
}

// Transform turns ngram into the macro n-gram to query. When collapsed
// is true the most recent token continues an open chunk and there is
// nothing to query; the macro n-gram is then nil.
func (m *Macro) Transform(ngram MicroNgram) (macro MacroNgram, collapsed bool) {
	tokens := m.tokens(ngram)
	if m.cfg.Collapse {
		codes := make(MicroNgram, len(tokens))
		for i, tok := range tokens {
			codes[i] = tok.Code
		}
		var kept []int
		if kept, collapsed = m.table.collapse(codes); collapsed {
			if glog.V(2) {
				glog.Infof("%v collapsed", ngram)
			}
			return nil, true
		}
		reduced := make([]MicroToken, len(kept))
		for i, j := range kept {
			reduced[i] = tokens[j]
		}
		tokens = reduced
	}
	if m.table.Len() > 0 {
		macro = m.mapper.mapEach(tokens)
	} else {
		macro = m.passthrough(tokens)
	}
	macro = m.truncate(macro)
	if glog.V(2) {
		glog.Infof("%v -> %v", ngram, macro)
	}
	return macro, false
}

// Map turns ngram into macro space without collapsing, merging chunks
// in one pass. It gives the n-gram whose suffix state stands for
// ngram.
func (m *Macro) Map(ngram MicroNgram) MacroNgram {
	var macro MacroNgram
	switch {
	case m.table.Len() == 0:
		macro = m.passthrough(m.tokens(ngram))
	case m.cfg.Field == FIELD_ONE_TO_ONE:
		macro = m.table.MapEach(ngram)
	default:
		macro = m.mapper.MapChunked(m.tokens(ngram))
	}
	return m.truncate(macro)
}

// LogProb scores ngram regardless of chunks. An n-gram that transforms
// to nothing scores 0.
func (m *Macro) LogProb(ngram MicroNgram) fslm.Weight {
	macro, _ := m.Transform(ngram)
	if len(macro) == 0 {
		return 0
	}
	return m.base.LogProb(macro)
}

// CachedLogProb scores ngram with the base model's incremental query.
// A position inside an open chunk scores a zero Score without querying
// the base model: the chunk was scored when it opened.
func (m *Macro) CachedLogProb(ngram MicroNgram) fslm.Score {
	macro, collapsed := m.Transform(ngram)
	if collapsed {
		return fslm.Score{}
	}
	return m.base.CachedLogProb(macro)
}

// MaxSuffix returns the base model's state for the mapped ngram. Micro
// n-grams that map to the same macro suffix get the same state.
func (m *Macro) MaxSuffix(ngram MicroNgram) fslm.Suffix {
	return m.base.MaxSuffix(m.Map(ngram))
}

func (m *Macro) MaxCompactSuffix(ngram MicroNgram) uint64 {
	return m.base.MaxCompactSuffix(m.Map(ngram))
}

// MacroMaxSuffix is MaxSuffix for an n-gram that is already in macro
// space.
func (m *Macro) MacroMaxSuffix(ngram MacroNgram) fslm.Suffix {
	return m.base.MaxSuffix(m.truncate(ngram))
}

func (m *Macro) MacroMaxCompactSuffix(ngram MacroNgram) uint64 {
	return m.base.MaxCompactSuffix(m.truncate(ngram))
}
