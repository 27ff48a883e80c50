package pgparser

import "github.com/flowscope/pgtrace/internal/capture"

// Message tags, frontend and backend.
// https://www.postgresql.org/docs/current/protocol-message-formats.html
//
// Only a narrow slice of the tag space is decoded: the simple-query
// and execute requests, and the responses that carry completion
// status, error detail, or signal a flowing result set. Everything
// else (parse/bind/describe/sync, authentication, copy, ready-for-
// query, parameter status, ...) is rejected so other protocol
// decoders get a chance at the payload.
const (
	TagSimpleQuery = byte('Q')
	TagExecute     = byte('E')

	TagErrorResponse   = byte('E')
	TagCommandComplete = byte('C')
	TagRowDescription  = byte('T')
	TagDataRow         = byte('D')
)

var requestTags = [256]bool{
	TagSimpleQuery: true,
	TagExecute:     true,
}

var responseTags = [256]bool{
	TagErrorResponse:   true,
	TagCommandComplete: true,
	TagRowDescription:  true,
	TagDataRow:         true,
}

// KnownTag reports whether tag names a message this decoder handles
// for the given direction.
func KnownTag(dir capture.Direction, tag byte) bool {
	switch dir {
	case capture.DirectionRequest:
		return requestTags[tag]
	case capture.DirectionResponse:
		return responseTags[tag]
	default:
		return false
	}
}
