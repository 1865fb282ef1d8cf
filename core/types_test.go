package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpKind_String(t *testing.T) {
	expected := map[OpKind]string{
		OpInsert:      "Insert",
		OpUpdate:      "Update",
		OpPointDelete: "PointDelete",
		OpRangeDelete: "RangeDelete",
		OpPointQuery:  "PointQuery",
		OpRangeQuery:  "RangeQuery",
	}
	for kind, name := range expected {
		assert.Equal(t, name, kind.String())
		assert.True(t, kind.IsValid())
	}
	assert.False(t, OpKind(200).IsValid())
}

func TestOpKinds_CoversEveryKindOnce(t *testing.T) {
	seen := make(map[OpKind]bool, len(OpKinds))
	for _, kind := range OpKinds {
		require.True(t, kind.IsValid())
		require.False(t, seen[kind], "kind %s listed twice", kind)
		seen[kind] = true
	}
	assert.Len(t, seen, 6)
}

func TestParseOpKind(t *testing.T) {
	for _, kind := range OpKinds {
		parsed, err := ParseOpKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseOpKind("Compaction")
	require.Error(t, err)
}

func TestProtocolError(t *testing.T) {
	err := &ProtocolError{Message: "unparsable telemetry field", Payload: "Insert:abc"}
	assert.Contains(t, err.Error(), "unparsable telemetry field")
	assert.Contains(t, err.Error(), "Insert:abc")
	assert.True(t, IsProtocolError(err))
	assert.False(t, IsProtocolError(errors.New("plain")))
}

func TestUnknownStrategyError(t *testing.T) {
	err := &UnknownStrategyError{Identifier: "btree"}
	assert.Contains(t, err.Error(), "btree")
	assert.True(t, IsUnknownStrategyError(err))
	assert.False(t, IsUnknownStrategyError(ErrChannelClosed))
}
