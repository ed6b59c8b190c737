package fslm

// Open addressing with linear probing, keyed by WordId. A bucket whose
// key is WORD_NIL is empty and ends every collision chain that reaches
// it, so a table always keeps at least one empty bucket. Builder grows
// an xqwMap per state; a Hashed model keeps the final bucket array and
// stores the state's back-off in its empty buckets.

type xqwEntry struct {
	Key   WordId
	Value StateWeight
}

type xqwBuckets []xqwEntry

const (
	minXqwBuckets = 4
	maxXqwLoad    = 0.8
)

type xqwMap struct {
	buckets xqwBuckets
	used    int
}

func newXqwMap() *xqwMap {
	return &xqwMap{buckets: emptyXqwBuckets(minXqwBuckets)}
}

func emptyXqwBuckets(n int) xqwBuckets {
	b := make(xqwBuckets, n)
	for i := range b {
		b[i].Key = WORD_NIL
	}
	return b
}

// Size is the number of keys. A nil map is empty.
func (m *xqwMap) Size() int {
	if m == nil {
		return 0
	}
	return m.used
}

func (m *xqwMap) Find(k WordId) *StateWeight {
	if m == nil {
		return nil
	}
	return m.buckets.Find(k)
}

// Set stores v under k, doubling the table once it is too full.
func (m *xqwMap) Set(k WordId, v StateWeight) {
	e := m.buckets.slot(k)
	if e.Key == WORD_NIL {
		if float64(m.used+1) > maxXqwLoad*float64(len(m.buckets)) {
			m.rehash(2 * len(m.buckets))
			e = m.buckets.slot(k)
		}
		m.used++
	}
	*e = xqwEntry{k, v}
}

// rehash moves the keys into n buckets, or just enough to keep one
// bucket empty if n is smaller.
func (m *xqwMap) rehash(n int) {
	if n <= m.used {
		n = m.used + 1
	}
	buckets := emptyXqwBuckets(n)
	m.each(func(e xqwEntry) {
		*buckets.slot(e.Key) = e
	})
	m.buckets = buckets
}

func (m *xqwMap) each(f func(xqwEntry)) {
	if m != nil {
		m.buckets.each(f)
	}
}

func (b xqwBuckets) each(f func(xqwEntry)) {
	for _, e := range b {
		if e.Key != WORD_NIL {
			f(e)
		}
	}
}

func (b xqwBuckets) Find(k WordId) *StateWeight {
	if len(b) == 0 {
		return nil
	}
	if e := b.slot(k); e.Key == k {
		return &e.Value
	}
	return nil
}

// slot returns the bucket holding k, or the empty bucket where the
// collision chain of k stops. In a Hashed model that bucket holds the
// back-off.
func (b xqwBuckets) slot(k WordId) *xqwEntry {
	i := b.home(k)
	for {
		if e := &b[i]; e.Key == k || e.Key == WORD_NIL {
			return e
		}
		if i++; i == len(b) {
			i = 0
		}
	}
}

func (b xqwBuckets) home(k WordId) int {
	return int(uint64(mixWordId(k)) % uint64(len(b)))
}

// mixWordId is Thomas Wang's hash32shift.
func mixWordId(k WordId) uint32 {
	r := uint32(k)
	r = ^r + r<<15
	r ^= r >> 12
	r += r << 2
	r ^= r >> 4
	r *= 2057
	return r ^ r>>16
}
