// Package decode holds the per-payload decode result and the façade
// the protocol-detection framework drives. One Decoder instance
// belongs to one captured flow direction; nothing here is shared.
package decode

import (
	"github.com/flowscope/pgtrace/internal/capture"
	"github.com/flowscope/pgtrace/internal/parsers/pgparser"
)

// Record is one decoded message, and after merging, one correlated
// request/response exchange. Direction records which side populated
// it last as a standalone decode; merged records keep both field
// groups. Times are in the capture layer's clock unit.
type Record struct {
	Direction capture.Direction
	StartTime uint64
	EndTime   uint64
	TLS       bool

	Request  pgparser.RequestFields
	Response pgparser.ResponseFields
}

// Merge folds other into r: StartTime becomes the minimum and EndTime
// the maximum across both, and the field group matching other's
// direction is overwritten wholesale (last write wins when the same
// direction is merged twice). An unknown direction contributes only
// its times.
func (r *Record) Merge(other *Record) {
	if other.StartTime < r.StartTime {
		r.StartTime = other.StartTime
	}
	if other.EndTime > r.EndTime {
		r.EndTime = other.EndTime
	}
	switch other.Direction {
	case capture.DirectionRequest:
		r.Request = other.Request
	case capture.DirectionResponse:
		r.Response = other.Response
	}
}

// RTT is the request/response round-trip time of a merged record.
func (r *Record) RTT() uint64 {
	return r.EndTime - r.StartTime
}
