// Package memtable provides the swappable in-memory write-path structures
// for the adaptive storage engine, plus the Handle through which the
// ingestion path reaches whichever implementation is currently active.
package memtable

import (
	"github.com/AlexanderHott/rocksdb-memtable-switching/core"
)

// Kind identifies a concrete memtable implementation. The set is closed;
// decisions naming anything else are rejected.
type Kind uint8

const (
	KindVector Kind = iota
	KindSkipList
	KindHashLinkList
	KindHashSkipList
)

var kindNames = [...]string{
	KindVector:       "vector",
	KindSkipList:     "skiplist",
	KindHashLinkList: "hash-linklist",
	KindHashSkipList: "hash-skiplist",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind maps a strategy identifier from a decision message to its
// Kind. Unknown identifiers yield an UnknownStrategyError.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, &core.UnknownStrategyError{Identifier: s}
}

// Memtable is the contract every write-path structure satisfies. All
// implementations are safe for concurrent use; deletes are recorded as
// tombstones so that Scan and Get agree on visibility.
type Memtable interface {
	// Put adds or replaces a key-value pair.
	Put(key, value []byte)
	// Get returns the latest value for key, or found=false if the key is
	// absent or tombstoned.
	Get(key []byte) (value []byte, found bool)
	// Delete writes a tombstone for key.
	Delete(key []byte)
	// DeleteRange tombstones every live key in [start, end).
	DeleteRange(start, end []byte)
	// Scan calls fn for each live key in [start, end) in ascending key
	// order until fn returns false. A nil start/end leaves that bound open.
	Scan(start, end []byte, fn func(key, value []byte) bool)
	// Len returns the number of entries held, tombstones included.
	Len() int
	// SizeBytes returns the estimated memory footprint of the entries.
	SizeBytes() int64
	// Kind identifies the implementation.
	Kind() Kind
	// Param returns the size hint the memtable was constructed with, so
	// a seal can rebuild the same configuration. Zero means the
	// implementation default.
	Param() int
}

// New constructs a memtable of the given kind. param is a size hint:
// the preallocation exponent for vector (capacity 1<<param) and the
// bucket-count exponent for the hashed kinds. A param of zero picks the
// implementation default; plain skiplist ignores it.
func New(kind Kind, param int) Memtable {
	switch kind {
	case KindVector:
		return newVector(param)
	case KindSkipList:
		return newSkipList()
	case KindHashLinkList:
		return newHashLinkList(param)
	case KindHashSkipList:
		return newHashSkipList(param)
	default:
		// The kind set is closed; callers validate via ParseKind first.
		return newSkipList()
	}
}

// entry is the stored value for a key. A tombstone marks a deleted key
// that must stay invisible to reads.
type entry struct {
	value     []byte
	tombstone bool
}

func entrySize(key []byte, e *entry) int64 {
	return int64(len(key) + len(e.value) + 1)
}
