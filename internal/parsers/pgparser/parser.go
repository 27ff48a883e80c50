// Package pgparser extracts observability fields from individual
// PostgreSQL wire-protocol messages. It never participates in the
// session: payloads are captured byte slices, and parsing is a pure
// function over them.
package pgparser

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/flowscope/pgtrace/internal/capture"
)

// HeaderLen is the fixed message prefix: 1-byte tag plus 4-byte
// big-endian length. The length counts the payload and itself but not
// the tag.
const HeaderLen = 5

// Status is the coarse outcome a response message reports.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusOK
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// RequestFields is what a request-direction message yields.
type RequestFields struct {
	Tag   byte
	Query string
}

// ResponseFields is what a response-direction message yields.
// ErrorCode is reserved: PostgreSQL reports SQLSTATE strings, not
// numeric codes, so it is never set today.
type ResponseFields struct {
	Tag          byte
	Status       Status
	ErrorCode    *int32
	ErrorMessage string
	AffectedRows uint64
}

// ValidateFrame reports whether payload starts with a well-formed
// message frame that this decoder handles for dir. The declared
// length only has to fit inside the buffer; trailing bytes from an
// over-read capture are tolerated.
func ValidateFrame(payload []byte, dir capture.Direction) bool {
	if len(payload) < HeaderLen {
		return false
	}
	if !KnownTag(dir, payload[0]) {
		return false
	}
	length := binary.BigEndian.Uint32(payload[1:HeaderLen])
	return uint64(len(payload)-1) >= uint64(length)
}

// ParseRequest extracts the fields of a validated request frame. The
// query text is everything after the header, lossily decoded.
func ParseRequest(payload []byte) RequestFields {
	return RequestFields{
		Tag:   payload[0],
		Query: lossyString(payload[HeaderLen:]),
	}
}

// ParseResponse extracts the fields of a validated response frame.
// Malformed interior content degrades to defaults; it never fails.
func ParseResponse(payload []byte) ResponseFields {
	f := ResponseFields{Tag: payload[0]}
	switch f.Tag {
	case TagErrorResponse:
		f.Status = StatusError
		f.ErrorMessage = errorMessage(payload[HeaderLen:])
	case TagCommandComplete:
		f.Status = StatusOK
		f.AffectedRows = affectedRows(payload[HeaderLen:])
	default:
		// Row descriptions and data rows mean a result set is
		// flowing; their contents are not decoded.
		f.Status = StatusOK
	}
	return f
}

// errorMessage pulls the human-readable message out of an
// ErrorResponse body: a run of NUL-terminated fields, each prefixed
// with a one-byte field-type code (severity, then SQLSTATE code, then
// the message).
// https://www.postgresql.org/docs/current/protocol-error-fields.html
func errorMessage(body []byte) string {
	rest, ok := SkipFields(body, 2)
	if !ok {
		return ""
	}
	field, _, ok := NextField(rest)
	if !ok || len(field) == 0 {
		return ""
	}
	return lossyString(field[1:])
}

var (
	opInsert = []byte("INSERT")
	opDelete = []byte("DELETE")
	opUpdate = []byte("UPDATE")
)

// affectedRows parses a CommandComplete command tag, e.g.
// "INSERT 0 5", "DELETE 5", "UPDATE 3". INSERT tags carry an OID
// token before the row count. Commands other than these three do not
// report a count we extract (MOVE and FETCH are deliberately out of
// scope), and any parse trouble defaults to 0.
func affectedRows(body []byte) uint64 {
	tag := body
	if i := bytes.IndexByte(tag, 0x20); i >= 0 {
		op := tag[:i]
		tag = tag[i+1:]
		switch {
		case bytes.Equal(op, opInsert):
			j := bytes.IndexByte(tag, 0x20)
			if j < 0 {
				return 0
			}
			tag = tag[j+1:]
		case bytes.Equal(op, opDelete), bytes.Equal(op, opUpdate):
		default:
			return 0
		}
	}
	field, _, ok := NextField(tag)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(string(field), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// lossyString decodes b as UTF-8, replacing invalid sequences. Query
// text and error detail are best-effort observability data, never a
// reason to fail a decode.
func lossyString(b []byte) string {
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
