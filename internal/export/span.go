// Package export shapes a correlated record into the generic
// request/response log form the outbound exporters consume.
// Serialization to a concrete wire format happens downstream.
package export

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowscope/pgtrace/internal/decode"
	"github.com/flowscope/pgtrace/internal/parsers/pgparser"
)

// Span is one observed PostgreSQL exchange. TraceID and SpanID are
// supplied by the instrumentation layer when it has them; this
// package only carries them through.
type Span struct {
	// ReqType is the request tag byte as a one-character string.
	ReqType string
	// Resource is the query text.
	Resource string

	Status pgparser.Status
	// Code is the response tag byte as an integer.
	Code int
	// Result is the error message, empty on success.
	Result string
	// ErrorCode is reserved and currently never set.
	ErrorCode *int32

	// RTT is EndTime − StartTime in the capture clock unit.
	RTT          uint64
	AffectedRows uint64
	TLS          bool

	TraceID trace.TraceID
	SpanID  trace.SpanID
}

// FromRecord converts a merged record to its exportable span shape.
func FromRecord(r *decode.Record) Span {
	s := Span{
		Resource:     r.Request.Query,
		Status:       r.Response.Status,
		Code:         int(r.Response.Tag),
		Result:       r.Response.ErrorMessage,
		ErrorCode:    r.Response.ErrorCode,
		RTT:          r.RTT(),
		AffectedRows: r.Response.AffectedRows,
		TLS:          r.TLS,
	}
	if r.Request.Tag != 0 {
		s.ReqType = string(rune(r.Request.Tag))
	}
	return s
}

// Attributes renders the span as OTel attributes for downstream
// exporters.
func (s Span) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", s.ReqType),
		attribute.String("db.query.text", s.Resource),
		attribute.String("db.response.status", s.Status.String()),
		attribute.Int("db.response.status_code", s.Code),
		attribute.Int64("db.response.returned_rows", int64(s.AffectedRows)),
		attribute.Bool("network.transport.tls", s.TLS),
	}
	if s.Result != "" {
		attrs = append(attrs, attribute.String("error.message", s.Result))
	}
	return attrs
}
