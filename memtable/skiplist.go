package memtable

import (
	"bytes"
	"sync"

	"github.com/INLOpen/skiplist"
)

// skipListMemtable is the default strategy: a sorted skip list keyed by
// the raw user key. Mirrors RocksDB's SkipListRep.
type skipListMemtable struct {
	mu        sync.RWMutex
	data      *skiplist.SkipList[[]byte, *entry]
	sizeBytes int64
}

func newSkipList() *skipListMemtable {
	return &skipListMemtable{
		data: skiplist.NewWithComparator[[]byte, *entry](bytes.Compare),
	}
}

func (s *skipListMemtable) Kind() Kind { return KindSkipList }

// Param is always zero: the skip list takes no size hint.
func (s *skipListMemtable) Param() int { return 0 }

func (s *skipListMemtable) Put(key, value []byte) {
	s.put(key, &entry{value: value})
}

func (s *skipListMemtable) Delete(key []byte) {
	s.put(key, &entry{tombstone: true})
}

func (s *skipListMemtable) put(key []byte, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldNode := s.data.Insert(key, e)
	if oldNode != nil {
		s.sizeBytes -= entrySize(key, oldNode.Value())
	}
	s.sizeBytes += entrySize(key, e)
}

func (s *skipListMemtable) Get(key []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Seek finds the first element >= key; it is only a hit if the keys
	// actually match.
	node, ok := s.data.Seek(key)
	if !ok || !bytes.Equal(node.Key(), key) {
		return nil, false
	}
	e := node.Value()
	if e.tombstone {
		return nil, false
	}
	return e.value, true
}

func (s *skipListMemtable) DeleteRange(start, end []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var victims [][]byte
	s.data.Range(func(key []byte, e *entry) bool {
		if start != nil && bytes.Compare(key, start) < 0 {
			return true
		}
		if end != nil && bytes.Compare(key, end) >= 0 {
			return false
		}
		if !e.tombstone {
			victims = append(victims, key)
		}
		return true
	})
	for _, key := range victims {
		oldNode := s.data.Insert(key, &entry{tombstone: true})
		if oldNode != nil {
			s.sizeBytes -= entrySize(key, oldNode.Value())
		}
		s.sizeBytes += entrySize(key, &entry{tombstone: true})
	}
}

func (s *skipListMemtable) Scan(start, end []byte, fn func(key, value []byte) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iter := s.data.NewIterator()
	var ok bool
	if start != nil {
		ok = iter.Seek(start)
	} else {
		ok = iter.First()
	}
	for ; ok; ok = iter.Next() {
		key := iter.Key()
		if end != nil && bytes.Compare(key, end) >= 0 {
			return
		}
		e := iter.Value()
		if e.tombstone {
			continue
		}
		if !fn(key, e.value) {
			return
		}
	}
}

func (s *skipListMemtable) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Len()
}

func (s *skipListMemtable) SizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sizeBytes
}
