// Package capture defines the segment model handed to protocol
// decoders by the capture layer. Reassembly and flow bookkeeping
// happen upstream; a decoder only ever sees one directed payload at a
// time.
package capture

// Direction is the logical direction of a captured payload relative
// to the database session.
type Direction uint8

const (
	// DirectionUnknown is the zero value; decoders treat it as
	// neither request nor response.
	DirectionUnknown Direction = iota
	// DirectionRequest is client → server.
	DirectionRequest
	// DirectionResponse is server → client.
	DirectionResponse
)

func (d Direction) String() string {
	switch d {
	case DirectionRequest:
		return "request"
	case DirectionResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Segment is one captured payload. Time is in the capture layer's
// clock unit (nanoseconds for the eBPF probes); decoders only compare
// and subtract it. TLS reports whether the transport under the
// payload was encrypted — decoders pass it through untouched.
type Segment struct {
	Flow      uint64
	Direction Direction
	Time      uint64
	TLS       bool
	Payload   []byte
}
