package lmmacro

// Collapse decides whether the most recent token of ngram continues a
// chunk opened by the token before it. If so, collapsed is true and
// reduced is nil: the position was already scored when the chunk
// opened. Otherwise reduced is ngram with the chunk continuations of
// the older tokens folded away and the most recent token kept as is.
func (t *MappingTable) Collapse(ngram MicroNgram) (reduced MicroNgram, collapsed bool) {
	kept, collapsed := t.collapse(ngram)
	if collapsed {
		return nil, true
	}
	reduced = make(MicroNgram, len(kept))
	for i, j := range kept {
		reduced[i] = ngram[j]
	}
	return reduced, false
}

// collapse is Collapse returning positions in ngram.
func (t *MappingTable) collapse(ngram MicroNgram) (kept []int, collapsed bool) {
	n := len(ngram)
	switch n {
	case 0:
		return nil, false
	case 1:
		return []int{0}, false
	}
	if t.inChunk(ngram[n-2], ngram[n-1]) {
		return nil, true
	}
	kept = make([]int, 0, n)
	prev := 0
	kept = append(kept, prev)
	for curr := 1; curr < n-1; curr++ {
		if t.Lookup(ngram[curr]) != t.Lookup(ngram[prev]) {
			kept = append(kept, curr)
		} else if !t.inChunk(ngram[prev], ngram[curr]) {
			// Same macro tag without a chunk between them: the older one
			// stands for both.
			kept = append(kept, prev)
		}
		prev = curr
	}
	return append(kept, n-1), false
}

// inChunk tells whether curr continues a chunk opened by prev.
func (t *MappingTable) inChunk(prev, curr MicroCode) bool {
	return t.Lookup(prev) == t.Lookup(curr) && t.Absorbable(curr) && t.Opening(prev)
}
