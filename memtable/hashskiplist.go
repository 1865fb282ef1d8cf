package memtable

import (
	"bytes"
	"sort"
	"sync"

	"github.com/INLOpen/skiplist"
)

// hashSkipListMemtable mirrors RocksDB's HashSkipListRep: keys are
// bucketed by hashed prefix and each bucket is its own skip list, giving
// sorted lookups within a bucket and cheap point access across buckets.
type hashSkipListMemtable struct {
	mu        sync.RWMutex
	buckets   map[uint64]*skiplist.SkipList[[]byte, *entry]
	mask      uint64
	count     int
	sizeBytes int64
	param     int
}

func newHashSkipList(param int) *hashSkipListMemtable {
	return &hashSkipListMemtable{
		buckets: make(map[uint64]*skiplist.SkipList[[]byte, *entry]),
		mask:    bucketMask(param),
		param:   param,
	}
}

func (h *hashSkipListMemtable) Kind() Kind { return KindHashSkipList }

func (h *hashSkipListMemtable) Param() int { return h.param }

func (h *hashSkipListMemtable) Put(key, value []byte) {
	h.put(key, &entry{value: value})
}

func (h *hashSkipListMemtable) Delete(key []byte) {
	h.put(key, &entry{tombstone: true})
}

func (h *hashSkipListMemtable) put(key []byte, e *entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.insertLocked(key, e)
}

func (h *hashSkipListMemtable) insertLocked(key []byte, e *entry) {
	b := bucketFor(key, h.mask)
	list, ok := h.buckets[b]
	if !ok {
		list = skiplist.NewWithComparator[[]byte, *entry](bytes.Compare)
		h.buckets[b] = list
	}
	oldNode := list.Insert(key, e)
	if oldNode != nil {
		h.sizeBytes -= entrySize(key, oldNode.Value())
		h.count--
	}
	h.sizeBytes += entrySize(key, e)
	h.count++
}

func (h *hashSkipListMemtable) Get(key []byte) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list, ok := h.buckets[bucketFor(key, h.mask)]
	if !ok {
		return nil, false
	}
	node, ok := list.Seek(key)
	if !ok || !bytes.Equal(node.Key(), key) {
		return nil, false
	}
	e := node.Value()
	if e.tombstone {
		return nil, false
	}
	return e.value, true
}

func (h *hashSkipListMemtable) DeleteRange(start, end []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, kv := range h.collectLatest(start, end) {
		h.insertLocked(kv.key, &entry{tombstone: true})
	}
}

func (h *hashSkipListMemtable) Scan(start, end []byte, fn func(key, value []byte) bool) {
	h.mu.RLock()
	latest := h.collectLatest(start, end)
	h.mu.RUnlock()

	for _, kv := range latest {
		if !fn(kv.key, kv.value) {
			return
		}
	}
}

// collectLatest gathers live keys in [start, end) from every bucket's
// skip list, merged into a single key-sorted slice. Caller holds a lock.
func (h *hashSkipListMemtable) collectLatest(start, end []byte) []vectorEntry {
	var out []vectorEntry
	for _, list := range h.buckets {
		list.Range(func(key []byte, e *entry) bool {
			if start != nil && bytes.Compare(key, start) < 0 {
				return true
			}
			if end != nil && bytes.Compare(key, end) >= 0 {
				return true
			}
			if !e.tombstone {
				out = append(out, vectorEntry{key: key, entry: *e})
			}
			return true
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].key, out[j].key) < 0
	})
	return out
}

func (h *hashSkipListMemtable) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *hashSkipListMemtable) SizeBytes() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sizeBytes
}
