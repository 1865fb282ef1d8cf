package memtable

import (
	"bytes"
	"hash/fnv"
	"sort"
	"sync"
)

const (
	// defaultBucketExponent gives 4096 buckets when no hint is supplied.
	defaultBucketExponent = 12
	// bucketPrefixLen is the number of leading key bytes hashed to pick a
	// bucket, mirroring RocksDB's prefix extractor.
	bucketPrefixLen = 8
)

func bucketFor(key []byte, mask uint64) uint64 {
	prefix := key
	if len(prefix) > bucketPrefixLen {
		prefix = prefix[:bucketPrefixLen]
	}
	h := fnv.New64a()
	h.Write(prefix)
	return h.Sum64() & mask
}

func bucketMask(param int) uint64 {
	exp := defaultBucketExponent
	if param > 0 && param < 31 {
		exp = param
	}
	return uint64(1)<<exp - 1
}

// hashLinkListMemtable mirrors RocksDB's HashLinkListRep: keys are
// bucketed by hashed prefix and each bucket is an unsorted list scanned
// backwards on lookup, so the latest write for a key wins.
type hashLinkListMemtable struct {
	mu        sync.RWMutex
	buckets   map[uint64][]vectorEntry
	mask      uint64
	count     int
	sizeBytes int64
	param     int
}

func newHashLinkList(param int) *hashLinkListMemtable {
	return &hashLinkListMemtable{
		buckets: make(map[uint64][]vectorEntry),
		mask:    bucketMask(param),
		param:   param,
	}
}

func (h *hashLinkListMemtable) Kind() Kind { return KindHashLinkList }

func (h *hashLinkListMemtable) Param() int { return h.param }

func (h *hashLinkListMemtable) Put(key, value []byte) {
	h.append(key, entry{value: value})
}

func (h *hashLinkListMemtable) Delete(key []byte) {
	h.append(key, entry{tombstone: true})
}

func (h *hashLinkListMemtable) append(key []byte, e entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := bucketFor(key, h.mask)
	h.buckets[b] = append(h.buckets[b], vectorEntry{key: key, entry: e})
	h.count++
	h.sizeBytes += entrySize(key, &e)
}

func (h *hashLinkListMemtable) Get(key []byte) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	bucket := h.buckets[bucketFor(key, h.mask)]
	for i := len(bucket) - 1; i >= 0; i-- {
		if bytes.Equal(bucket[i].key, key) {
			if bucket[i].tombstone {
				return nil, false
			}
			return bucket[i].value, true
		}
	}
	return nil, false
}

func (h *hashLinkListMemtable) DeleteRange(start, end []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, kv := range h.collectLatest(start, end) {
		b := bucketFor(kv.key, h.mask)
		e := entry{tombstone: true}
		h.buckets[b] = append(h.buckets[b], vectorEntry{key: kv.key, entry: e})
		h.count++
		h.sizeBytes += entrySize(kv.key, &e)
	}
}

func (h *hashLinkListMemtable) Scan(start, end []byte, fn func(key, value []byte) bool) {
	h.mu.RLock()
	latest := h.collectLatest(start, end)
	h.mu.RUnlock()

	for _, kv := range latest {
		if !fn(kv.key, kv.value) {
			return
		}
	}
}

// collectLatest gathers the latest live version of every key in
// [start, end) across all buckets, sorted by key. Caller holds a lock.
func (h *hashLinkListMemtable) collectLatest(start, end []byte) []vectorEntry {
	seen := make(map[string]vectorEntry)
	for _, bucket := range h.buckets {
		// Walk forward so later writes overwrite earlier ones.
		for _, ve := range bucket {
			if start != nil && bytes.Compare(ve.key, start) < 0 {
				continue
			}
			if end != nil && bytes.Compare(ve.key, end) >= 0 {
				continue
			}
			seen[string(ve.key)] = ve
		}
	}
	out := make([]vectorEntry, 0, len(seen))
	for _, ve := range seen {
		if !ve.tombstone {
			out = append(out, ve)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].key, out[j].key) < 0
	})
	return out
}

func (h *hashLinkListMemtable) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *hashLinkListMemtable) SizeBytes() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sizeBytes
}
