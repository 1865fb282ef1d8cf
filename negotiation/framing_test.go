package negotiation

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFraming_RoundTrip(t *testing.T) {
	testCases := []struct {
		name    string
		msgType MessageType
		payload string
	}{
		{"syn", MessageSyn, "syn"},
		{"empty ack", MessageAck, ""},
		{"telemetry", MessageTelemetry, "Insert:72.5000,PointQuery:27.5000"},
		{"decision", MessageDecision, "vector;20"},
		{"shutdown", MessageShutdown, "shutdown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteFrame(&buf, tc.msgType, []byte(tc.payload)))

			msgType, payload, err := ReadFrame(bufio.NewReader(&buf))
			require.NoError(t, err)
			assert.Equal(t, tc.msgType, msgType)
			assert.Equal(t, tc.payload, string(payload))
		})
	}
}

func TestFraming_MultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, MessageTelemetry, []byte("Insert:100.0000")))
	require.NoError(t, WriteFrame(&buf, MessageThroughput, []byte("15321")))

	r := bufio.NewReader(&buf)
	msgType, payload, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, MessageTelemetry, msgType)
	assert.Equal(t, "Insert:100.0000", string(payload))

	msgType, payload, err = ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, MessageThroughput, msgType)
	assert.Equal(t, "15321", string(payload))
}

func TestFraming_DetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, MessageDecision, []byte("skiplist")))

	corrupted := buf.Bytes()
	corrupted[len(corrupted)-6] ^= 0xFF // flip a payload byte

	_, _, err := ReadFrame(bufio.NewReader(bytes.NewReader(corrupted)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestFraming_TruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, MessageDecision, []byte("skiplist")))

	truncated := buf.Bytes()[:buf.Len()-3]
	_, _, err := ReadFrame(bufio.NewReader(bytes.NewReader(truncated)))
	require.Error(t, err)
}
