package lmmacro

import (
	"bufio"
	"io"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/kho/lmmacro/fslm"
)

// Chunk markers are the last byte of a micro tag.
const (
	MARK_OPEN     = '('
	MARK_CLOSE    = ')'
	MARK_CONTINUE = '+'
)

// MappingTable maps micro codes to macro codes. It is filled once by
// LoadMap and read-only afterwards. Codes at or beyond Len() map to
// the macro OOV code.
type MappingTable struct {
	macro []MacroCode
	// Parallel to macro; nil unless chunk collapsing is enabled.
	absorbable, opening []bool
	oov                 MacroCode
}

func newMappingTable(oov MacroCode, collapse bool) *MappingTable {
	t := &MappingTable{oov: oov}
	if collapse {
		t.absorbable, t.opening = []bool{}, []bool{}
	}
	return t
}

func (t *MappingTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.macro)
}

// Lookup returns the macro code of c.
func (t *MappingTable) Lookup(c MicroCode) MacroCode {
	if uint64(c) >= uint64(t.Len()) {
		if t == nil {
			return fslm.WORD_NIL
		}
		return t.oov
	}
	return t.macro[c]
}

// Absorbable tells whether c can be absorbed into a chunk opened before
// it, i.e. its micro tag ends with ')' or '+'.
func (t *MappingTable) Absorbable(c MicroCode) bool {
	return t != nil && uint64(c) < uint64(len(t.absorbable)) && t.absorbable[c]
}

// Opening tells whether c opens or continues a chunk, i.e. its micro
// tag ends with '(' or '+'.
func (t *MappingTable) Opening(c MicroCode) bool {
	return t != nil && uint64(c) < uint64(len(t.opening)) && t.opening[c]
}

// CollapseEnabled tells whether the table carries chunk markers.
func (t *MappingTable) CollapseEnabled() bool {
	return t != nil && t.absorbable != nil
}

// set maps c to x. Gaps are filled with OOV.
func (t *MappingTable) set(c MicroCode, x MacroCode, marker byte) {
	for int(c) >= len(t.macro) {
		t.macro = append(t.macro, t.oov)
		if t.absorbable != nil {
			t.absorbable = append(t.absorbable, false)
			t.opening = append(t.opening, false)
		}
	}
	t.macro[c] = x
	if t.absorbable != nil {
		switch marker {
		case MARK_OPEN:
			t.absorbable[c], t.opening[c] = false, true
		case MARK_CLOSE:
			t.absorbable[c], t.opening[c] = true, false
		case MARK_CONTINUE:
			t.absorbable[c], t.opening[c] = true, true
		default:
			t.absorbable[c], t.opening[c] = false, false
		}
	}
}

// LoadMap reads a map file with one "microTag macroTag" pair per line.
// Micro tags are added to dict; macro tags are encoded with macro.
// path is only used in error messages. When the file has at least one
// entry, <s> and </s> are mapped to themselves unless the file maps
// them. Zero entries is only allowed when a field is selected, since
// otherwise there is no way to reduce the input.
func LoadMap(in io.Reader, path string, dict *MicroDict, macro fslm.Dictionary, collapse bool, field int) (*MappingTable, error) {
	t := newMappingTable(macro.OOV(), collapse)
	scanner := bufio.NewScanner(in)
	lineNo, numEntries, numUnknown := 0, 0, 0
	bos, eos := false, false
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, &ConfigError{path, lineNo, "wrong format of map file: expect 2 fields"}
		}
		micro, macroTag := fields[0], fields[1]
		x := macro.Encode(macroTag)
		if x == macro.OOV() && macroTag != fslm.UNK {
			numUnknown++
			if glog.V(1) {
				glog.Infof("%s:%d: macro tag %q is not in the model", path, lineNo, macroTag)
			}
		}
		t.set(dict.Encode(micro), x, micro[len(micro)-1])
		bos = bos || micro == fslm.BOS
		eos = eos || micro == fslm.EOS
		numEntries++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading map %s", path)
	}
	if numEntries == 0 && field == FIELD_WHOLE {
		return nil, &ConfigError{Path: path, Msg: "with no field selection, a map for the whole string is mandatory"}
	}
	if numEntries > 0 {
		if !bos {
			t.set(dict.Encode(fslm.BOS), macro.Encode(fslm.BOS), 0)
		}
		if !eos {
			t.set(dict.Encode(fslm.EOS), macro.Encode(fslm.EOS), 0)
		}
	}
	if numUnknown > 0 {
		glog.Warningf("%s: %d macro tags are not in the model and map to OOV", path, numUnknown)
	}
	glog.Infof("loaded %d map entries from %s (%d micro tags)", numEntries, path, t.Len())
	return t, nil
}
