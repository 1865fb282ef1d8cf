package memtable

import (
	"bytes"
	"sort"
	"sync"
)

// defaultVectorPrealloc is the entry capacity used when no preallocation
// exponent is supplied.
const defaultVectorPrealloc = 1 << 10

// vectorMemtable mirrors RocksDB's VectorRep: writes append to a flat
// slice and the slice is sorted lazily when a read needs key order.
// Within equal keys the later append wins.
type vectorMemtable struct {
	mu        sync.RWMutex
	entries   []vectorEntry
	sorted    bool
	sizeBytes int64
	param     int
}

type vectorEntry struct {
	key []byte
	seq uint64 // append order, breaks ties between versions of a key
	entry
}

func newVector(param int) *vectorMemtable {
	prealloc := defaultVectorPrealloc
	if param > 0 && param < 31 {
		prealloc = 1 << param
	}
	return &vectorMemtable{
		entries: make([]vectorEntry, 0, prealloc),
		sorted:  true,
		param:   param,
	}
}

func (v *vectorMemtable) Kind() Kind { return KindVector }

func (v *vectorMemtable) Param() int { return v.param }

func (v *vectorMemtable) Put(key, value []byte) {
	v.append(key, entry{value: value})
}

func (v *vectorMemtable) Delete(key []byte) {
	v.append(key, entry{tombstone: true})
}

func (v *vectorMemtable) append(key []byte, e entry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = append(v.entries, vectorEntry{key: key, seq: uint64(len(v.entries)), entry: e})
	v.sorted = false
	v.sizeBytes += entrySize(key, &e)
}

// ensureSorted orders entries by key, then by sequence so the latest
// version of a key comes last among its duplicates. Caller holds the
// write lock.
func (v *vectorMemtable) ensureSorted() {
	if v.sorted {
		return
	}
	sort.Slice(v.entries, func(i, j int) bool {
		if c := bytes.Compare(v.entries[i].key, v.entries[j].key); c != 0 {
			return c < 0
		}
		return v.entries[i].seq < v.entries[j].seq
	})
	v.sorted = true
}

func (v *vectorMemtable) Get(key []byte) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureSorted()

	// Find the first entry > key, then step back to the latest version.
	idx := sort.Search(len(v.entries), func(i int) bool {
		return bytes.Compare(v.entries[i].key, key) > 0
	})
	if idx == 0 || !bytes.Equal(v.entries[idx-1].key, key) {
		return nil, false
	}
	latest := v.entries[idx-1]
	if latest.tombstone {
		return nil, false
	}
	return latest.value, true
}

func (v *vectorMemtable) DeleteRange(start, end []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureSorted()

	var victims [][]byte
	v.visitLatest(start, end, func(key, _ []byte) bool {
		victims = append(victims, key)
		return true
	})
	for _, key := range victims {
		e := entry{tombstone: true}
		v.entries = append(v.entries, vectorEntry{key: key, seq: uint64(len(v.entries)), entry: e})
		v.sizeBytes += entrySize(key, &e)
	}
	v.sorted = false
}

func (v *vectorMemtable) Scan(start, end []byte, fn func(key, value []byte) bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureSorted()
	v.visitLatest(start, end, fn)
}

// visitLatest walks the sorted entries and calls fn with the latest live
// version of each distinct key in [start, end). Caller holds the lock
// and has sorted the entries.
func (v *vectorMemtable) visitLatest(start, end []byte, fn func(key, value []byte) bool) {
	i := 0
	if start != nil {
		i = sort.Search(len(v.entries), func(i int) bool {
			return bytes.Compare(v.entries[i].key, start) >= 0
		})
	}
	for i < len(v.entries) {
		key := v.entries[i].key
		if end != nil && bytes.Compare(key, end) >= 0 {
			return
		}
		// Advance to the last (latest) version of this key.
		j := i
		for j+1 < len(v.entries) && bytes.Equal(v.entries[j+1].key, key) {
			j++
		}
		latest := v.entries[j]
		if !latest.tombstone {
			if !fn(latest.key, latest.value) {
				return
			}
		}
		i = j + 1
	}
}

func (v *vectorMemtable) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

func (v *vectorMemtable) SizeBytes() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sizeBytes
}
