package negotiation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlexanderHott/rocksdb-memtable-switching/core"
	"github.com/AlexanderHott/rocksdb-memtable-switching/memtable"
	"github.com/AlexanderHott/rocksdb-memtable-switching/telemetry"
)

// MessageType identifies a negotiation message.
type MessageType byte

const (
	MessageSyn        MessageType = 0x01
	MessageAck        MessageType = 0x02
	MessageTelemetry  MessageType = 0x10
	MessageThroughput MessageType = 0x11
	MessageDecision   MessageType = 0x20
	MessageShutdown   MessageType = 0xFF
)

func (t MessageType) String() string {
	switch t {
	case MessageSyn:
		return "syn"
	case MessageAck:
		return "ack"
	case MessageTelemetry:
		return "telemetry"
	case MessageThroughput:
		return "throughput"
	case MessageDecision:
		return "decision"
	case MessageShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("MessageType(0x%02x)", byte(t))
	}
}

// Fixed payload literals for the session handshakes.
const (
	PayloadSyn      = "syn"
	PayloadShutdown = "shutdown"
)

// EncodeTelemetry renders a snapshot as comma-separated kind:percentage
// pairs with four decimal places, kinds in canonical order, e.g.
// "Insert:72.5000,PointQuery:27.5000". Only kinds present in the window
// appear.
func EncodeTelemetry(snap telemetry.Snapshot) string {
	var sb strings.Builder
	for _, kind := range core.OpKinds {
		pct, ok := snap.Percentages[kind]
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s:%.4f", kind, pct)
	}
	return sb.String()
}

// DecodeTelemetry parses a telemetry payload back into kind percentages.
// Used by the decider side of the protocol and by round-trip tests.
func DecodeTelemetry(payload string) (map[core.OpKind]float64, error) {
	out := make(map[core.OpKind]float64)
	if payload == "" {
		return out, nil
	}
	for _, pair := range strings.Split(payload, ",") {
		name, pctStr, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, &core.ProtocolError{Message: "telemetry pair missing separator", Payload: pair}
		}
		kind, err := core.ParseOpKind(name)
		if err != nil {
			return nil, &core.ProtocolError{Message: err.Error(), Payload: pair}
		}
		pct, err := strconv.ParseFloat(pctStr, 64)
		if err != nil {
			return nil, &core.ProtocolError{Message: "bad percentage", Payload: pair}
		}
		out[kind] = pct
	}
	return out, nil
}

// EncodeThroughput renders a throughput count as decimal text.
func EncodeThroughput(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// DecodeThroughput parses a throughput payload.
func DecodeThroughput(payload string) (uint64, error) {
	n, err := strconv.ParseUint(payload, 10, 64)
	if err != nil {
		return 0, &core.ProtocolError{Message: "bad throughput count", Payload: payload}
	}
	return n, nil
}

// Decision is a validated strategy choice from the external decider.
type Decision struct {
	Kind     memtable.Kind
	Param    int
	HasParam bool
}

// ParseDecision parses and validates a decision payload of the form
// "identifier" or "identifier;parameter". Unknown identifiers yield an
// UnknownStrategyError; a malformed parameter yields a ProtocolError.
func ParseDecision(payload string) (Decision, error) {
	name, paramStr, hasParam := strings.Cut(payload, ";")
	kind, err := memtable.ParseKind(name)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Kind: kind}
	if hasParam {
		param, err := strconv.Atoi(paramStr)
		if err != nil {
			return Decision{}, &core.ProtocolError{Message: "bad decision parameter", Payload: payload}
		}
		d.Param = param
		d.HasParam = true
	}
	return d, nil
}

// EncodeDecision renders a decision payload. Used by the decider side
// and by round-trip tests.
func EncodeDecision(d Decision) string {
	if d.HasParam {
		return fmt.Sprintf("%s;%d", d.Kind, d.Param)
	}
	return d.Kind.String()
}
