// Package workload parses and replays benchmark workload files. Each
// line is one operation: "I <key> <value>", "U <key> <value>",
// "P <key>", "R <start> <end>", "D <key>", "X <start> <end>".
package workload

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlexanderHott/rocksdb-memtable-switching/core"
	"github.com/AlexanderHott/rocksdb-memtable-switching/engine"
)

// Op is one parsed workload operation. Key/Value carry the operands for
// point operations; Key/EndKey bound range operations.
type Op struct {
	Kind   core.OpKind
	Key    []byte
	Value  []byte
	EndKey []byte
}

// Parse reads a workload from r. A malformed line fails the whole parse
// with its line number.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		op, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("workload line %d: %w", lineNo, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read workload: %w", err)
	}
	return ops, nil
}

// ParseFile reads a workload file from disk.
func ParseFile(path string) ([]Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workload file %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

func parseLine(line string) (Op, error) {
	if len(line) < 3 || line[1] != ' ' {
		return Op{}, fmt.Errorf("malformed line %q", line)
	}
	rest := line[2:]
	switch line[0] {
	case 'I', 'U':
		key, value, ok := strings.Cut(rest, " ")
		if !ok {
			return Op{}, fmt.Errorf("write op missing value in %q", line)
		}
		kind := core.OpInsert
		if line[0] == 'U' {
			kind = core.OpUpdate
		}
		return Op{Kind: kind, Key: []byte(key), Value: []byte(value)}, nil
	case 'P':
		return Op{Kind: core.OpPointQuery, Key: []byte(rest)}, nil
	case 'D':
		return Op{Kind: core.OpPointDelete, Key: []byte(rest)}, nil
	case 'R', 'X':
		start, end, ok := strings.Cut(rest, " ")
		if !ok {
			return Op{}, fmt.Errorf("range op missing end key in %q", line)
		}
		kind := core.OpRangeQuery
		if line[0] == 'X' {
			kind = core.OpRangeDelete
		}
		return Op{Kind: kind, Key: []byte(start), EndKey: []byte(end)}, nil
	default:
		return Op{}, fmt.Errorf("unknown operation %q", line[0])
	}
}

// Run applies a parsed workload to the engine in order.
func Run(ctx context.Context, e *engine.Engine, ops []Op) error {
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch op.Kind {
		case core.OpInsert:
			e.Insert(ctx, op.Key, op.Value)
		case core.OpUpdate:
			e.Update(ctx, op.Key, op.Value)
		case core.OpPointQuery:
			e.PointQuery(ctx, op.Key)
		case core.OpRangeQuery:
			e.RangeQuery(ctx, op.Key, op.EndKey)
		case core.OpPointDelete:
			e.PointDelete(ctx, op.Key)
		case core.OpRangeDelete:
			e.RangeDelete(ctx, op.Key, op.EndKey)
		}
	}
	return nil
}
