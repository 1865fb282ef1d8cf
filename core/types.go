package core

import (
	"fmt"
	"time"
)

// OpKind identifies the kind of a completed database operation.
type OpKind uint8

const (
	OpInsert OpKind = iota
	OpUpdate
	OpPointDelete
	OpRangeDelete
	OpPointQuery
	OpRangeQuery
	numOpKinds
)

// OpKinds lists every operation kind in canonical order. Telemetry
// encoding and the event log rely on this order being stable.
var OpKinds = [...]OpKind{OpInsert, OpUpdate, OpPointDelete, OpRangeDelete, OpPointQuery, OpRangeQuery}

var opKindNames = [...]string{
	OpInsert:      "Insert",
	OpUpdate:      "Update",
	OpPointDelete: "PointDelete",
	OpRangeDelete: "RangeDelete",
	OpPointQuery:  "PointQuery",
	OpRangeQuery:  "RangeQuery",
}

func (k OpKind) String() string {
	if k >= numOpKinds {
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
	return opKindNames[k]
}

// IsValid reports whether k is a member of the closed kind set.
func (k OpKind) IsValid() bool {
	return k < numOpKinds
}

// ParseOpKind maps a kind name back to its OpKind. The name set is the
// same one the event log serializes.
func ParseOpKind(s string) (OpKind, error) {
	for _, k := range OpKinds {
		if opKindNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operation kind %q", s)
}

// Operation is a single completed operation as recorded by the ingestion
// path. Immutable once recorded.
type Operation struct {
	Kind     OpKind
	Duration time.Duration
}
