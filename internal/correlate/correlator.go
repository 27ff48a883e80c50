// Package correlate pairs request-side and response-side decode
// results into one logical exchange per flow. It owns the host-side
// bookkeeping the decoder itself stays out of: one pending request
// per flow, bounded in count and age.
package correlate

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/flowscope/pgtrace/internal/capture"
	"github.com/flowscope/pgtrace/internal/decode"
	"github.com/flowscope/pgtrace/internal/parsers/pgparser"
)

// Outcome classifies what Observe did with a record.
type Outcome uint8

const (
	// OutcomePending means the record was absorbed and the exchange
	// is still open.
	OutcomePending Outcome = iota
	// OutcomeCompleted means a full request/response exchange was
	// emitted.
	OutcomeCompleted
	// OutcomeOrphan means a response arrived with no pending request
	// and was emitted alone.
	OutcomeOrphan
)

// Correlator holds at most one pending request per flow. A request
// that never sees its response ages out of the LRU; that is the only
// timeout in this layer.
type Correlator struct {
	pending *expirable.LRU[uint64, *decode.Record]
	log     *slog.Logger
}

func New(maxPending int, ttl time.Duration, log *slog.Logger) *Correlator {
	if log == nil {
		log = slog.Default()
	}
	return &Correlator{
		pending: expirable.NewLRU[uint64, *decode.Record](maxPending, nil, ttl),
		log:     log,
	}
}

// Observe feeds one decoded record for flow. Request-origin records
// are stored, overwriting an earlier unanswered request on the same
// flow. Response-origin records merge into the pending request;
// row-stream messages (row description, data row) keep the exchange
// open, while command completion and errors close it and yield the
// merged record.
func (c *Correlator) Observe(flow uint64, rec decode.Record) (*decode.Record, Outcome) {
	switch rec.Direction {
	case capture.DirectionRequest:
		if _, ok := c.pending.Get(flow); ok {
			c.log.Debug("overwriting unanswered request", "flow", flow)
		}
		stored := rec
		c.pending.Add(flow, &stored)
		return nil, OutcomePending

	case capture.DirectionResponse:
		acc, ok := c.pending.Get(flow)
		if !ok {
			c.log.Debug("response without pending request", "flow", flow, "tag", string(rune(rec.Response.Tag)))
			orphan := rec
			return &orphan, OutcomeOrphan
		}
		acc.Merge(&rec)
		if !terminal(rec.Response.Tag) {
			return nil, OutcomePending
		}
		c.pending.Remove(flow)
		return acc, OutcomeCompleted

	default:
		return nil, OutcomePending
	}
}

// Len reports the number of open exchanges.
func (c *Correlator) Len() int {
	return c.pending.Len()
}

func terminal(tag byte) bool {
	return tag == pgparser.TagCommandComplete || tag == pgparser.TagErrorResponse
}
