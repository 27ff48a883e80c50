package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flowscope/pgtrace/internal/capture"
	"github.com/flowscope/pgtrace/internal/decode"
	"github.com/flowscope/pgtrace/internal/parsers/pgparser"
)

func TestFromRecord(t *testing.T) {
	tests := []struct {
		name     string
		record   decode.Record
		expected Span
	}{
		{
			name: "completed insert",
			record: decode.Record{
				Direction: capture.DirectionResponse,
				StartTime: 100,
				EndTime:   250,
				TLS:       true,
				Request:   pgparser.RequestFields{Tag: 'Q', Query: "INSERT INTO t VALUES (1)"},
				Response: pgparser.ResponseFields{
					Tag:          'C',
					Status:       pgparser.StatusOK,
					AffectedRows: 1,
				},
			},
			expected: Span{
				ReqType:      "Q",
				Resource:     "INSERT INTO t VALUES (1)",
				Status:       pgparser.StatusOK,
				Code:         int('C'),
				RTT:          150,
				AffectedRows: 1,
				TLS:          true,
			},
		},
		{
			name: "failed statement",
			record: decode.Record{
				StartTime: 10,
				EndTime:   30,
				Request:   pgparser.RequestFields{Tag: 'Q', Query: "INSERT INTO t VALUES (1)"},
				Response: pgparser.ResponseFields{
					Tag:          'E',
					Status:       pgparser.StatusError,
					ErrorMessage: "duplicate key",
				},
			},
			expected: Span{
				ReqType:  "Q",
				Resource: "INSERT INTO t VALUES (1)",
				Status:   pgparser.StatusError,
				Code:     int('E'),
				Result:   "duplicate key",
				RTT:      20,
			},
		},
		{
			name: "orphan response has no request type",
			record: decode.Record{
				StartTime: 5,
				EndTime:   5,
				Response:  pgparser.ResponseFields{Tag: 'C', Status: pgparser.StatusOK},
			},
			expected: Span{
				Status: pgparser.StatusOK,
				Code:   int('C'),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromRecord(&tt.record))
		})
	}
}

func TestAttributes(t *testing.T) {
	s := Span{
		ReqType:      "Q",
		Resource:     "SELECT 1",
		Status:       pgparser.StatusOK,
		Code:         int('C'),
		AffectedRows: 3,
	}

	attrs := attrMap(s.Attributes())
	assert.Equal(t, "postgresql", attrs["db.system"].AsString())
	assert.Equal(t, "SELECT 1", attrs["db.query.text"].AsString())
	assert.Equal(t, "ok", attrs["db.response.status"].AsString())
	assert.Equal(t, int64('C'), attrs["db.response.status_code"].AsInt64())
	assert.Equal(t, int64(3), attrs["db.response.returned_rows"].AsInt64())
	assert.NotContains(t, attrs, "error.message")

	s.Result = "relation does not exist"
	attrs = attrMap(s.Attributes())
	assert.Equal(t, "relation does not exist", attrs["error.message"].AsString())
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}
