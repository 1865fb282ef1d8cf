// Package negotiation implements the wire protocol between the
// coordinator and the external decision process: a fixed textual message
// grammar carried in length-prefixed, checksummed frames over a stream
// transport (a unix domain socket by default).
package negotiation

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	// MaxFrameSize bounds a single frame's payload. Negotiation messages
	// are tiny; anything near this limit indicates a corrupt stream.
	MaxFrameSize = 1 * 1024 * 1024 // 1 MB

	frameHeaderSize = 5 // type byte + uint32 length
	checksumSize    = 4
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// WriteFrame writes a message type and payload to the writer. The frame
// layout is: type (1 byte), length (4 bytes, payload+checksum), payload,
// CRC32-C checksum over type+length+payload.
func WriteFrame(w io.Writer, msgType MessageType, payload []byte) error {
	if len(payload) > MaxFrameSize-checksumSize {
		return fmt.Errorf("payload size %d exceeds frame limit", len(payload))
	}

	frame := make([]byte, frameHeaderSize+len(payload)+checksumSize)
	frame[0] = byte(msgType)
	// The length field covers the payload plus the checksum trailer.
	binary.BigEndian.PutUint32(frame[1:frameHeaderSize], uint32(len(payload)+checksumSize))
	copy(frame[frameHeaderSize:], payload)

	sum := crc32.Checksum(frame[:frameHeaderSize+len(payload)], crc32cTable)
	binary.BigEndian.PutUint32(frame[frameHeaderSize+len(payload):], sum)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from the reader and verifies its checksum.
func ReadFrame(r *bufio.Reader) (MessageType, []byte, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	bodyLen := binary.BigEndian.Uint32(header[1:])
	if bodyLen < checksumSize {
		return 0, nil, fmt.Errorf("invalid payload length: %d", bodyLen)
	}
	if bodyLen > MaxFrameSize {
		return 0, nil, fmt.Errorf("frame size %d exceeds maximum %d", bodyLen, MaxFrameSize)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("failed to read payload: %w", err)
	}
	payload := body[:bodyLen-checksumSize]

	sum := crc32.Checksum(header, crc32cTable)
	sum = crc32.Update(sum, crc32cTable, payload)
	if got := binary.BigEndian.Uint32(body[bodyLen-checksumSize:]); got != sum {
		return 0, nil, fmt.Errorf("checksum mismatch")
	}
	return MessageType(header[0]), payload, nil
}
