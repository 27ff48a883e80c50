// Package replay reads segment capture logs, the offline stand-in
// for the live capture layer. One segment per line:
//
//	<flow-id> <c2s|s2c> <timestamp-ns> <hex-payload> [tls]
//
// Blank lines and lines starting with '#' are skipped.
package replay

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/flowscope/pgtrace/internal/capture"
)

const maxLineBytes = 1 << 20

// ParseLine parses one capture-log line into a segment.
func ParseLine(line string) (capture.Segment, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return capture.Segment{}, fmt.Errorf("want at least 4 fields, got %d", len(fields))
	}

	flow, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return capture.Segment{}, fmt.Errorf("flow id %q: %w", fields[0], err)
	}

	var dir capture.Direction
	switch fields[1] {
	case "c2s":
		dir = capture.DirectionRequest
	case "s2c":
		dir = capture.DirectionResponse
	default:
		return capture.Segment{}, fmt.Errorf("direction %q: want c2s or s2c", fields[1])
	}

	ts, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return capture.Segment{}, fmt.Errorf("timestamp %q: %w", fields[2], err)
	}

	payload, err := hex.DecodeString(fields[3])
	if err != nil {
		return capture.Segment{}, fmt.Errorf("payload: %w", err)
	}

	seg := capture.Segment{
		Flow:      flow,
		Direction: dir,
		Time:      ts,
		Payload:   payload,
	}
	if len(fields) > 4 && fields[4] == "tls" {
		seg.TLS = true
	}
	return seg, nil
}

// Read streams segments from r into fn, stopping on the first
// malformed line or fn error.
func Read(r io.Reader, fn func(capture.Segment) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seg, err := ParseLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := fn(seg); err != nil {
			return err
		}
	}
	return scanner.Err()
}
