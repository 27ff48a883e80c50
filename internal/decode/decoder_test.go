package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscope/pgtrace/internal/capture"
	"github.com/flowscope/pgtrace/internal/parsers/pgparser"
)

func frame(tag byte, declared uint32, body []byte) []byte {
	pkt := make([]byte, 5, 5+len(body))
	pkt[0] = tag
	binary.BigEndian.PutUint32(pkt[1:5], declared)
	return append(pkt, body...)
}

func TestProbeThenDecode(t *testing.T) {
	d := New()
	payload := frame('Q', 10, []byte("SELECT 1"))

	require.True(t, d.Probe(payload, capture.DirectionRequest, 42))

	rec, ok := d.Decode(payload, capture.DirectionRequest, 99)
	require.True(t, ok)
	assert.Equal(t, capture.DirectionRequest, rec.Direction)
	assert.Equal(t, byte('Q'), rec.Request.Tag)
	assert.Equal(t, "SELECT 1", rec.Request.Query)
	// Decode after a successful Probe returns the cached result; the
	// later timestamp does not disturb it.
	assert.Equal(t, uint64(42), rec.StartTime)
	assert.Equal(t, uint64(42), rec.EndTime)
}

func TestDecodeWithoutProbe(t *testing.T) {
	d := New()
	payload := frame('C', 13, []byte("INSERT 16 3\x00"))

	rec, ok := d.Decode(payload, capture.DirectionResponse, 7)
	require.True(t, ok)
	assert.Equal(t, pgparser.StatusOK, rec.Response.Status)
	assert.Equal(t, uint64(3), rec.Response.AffectedRows)
	assert.Equal(t, uint64(7), rec.StartTime)
	assert.Equal(t, uint64(7), rec.EndTime)
}

func TestProbeRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		dir     capture.Direction
	}{
		{
			name:    "too short",
			payload: []byte{'Q', 0, 0},
			dir:     capture.DirectionRequest,
		},
		{
			name:    "bad tag for direction",
			payload: frame('Z', 5, []byte{'I'}),
			dir:     capture.DirectionResponse,
		},
		{
			name:    "declared length too large",
			payload: frame('Q', 1000, []byte("SELECT 1")),
			dir:     capture.DirectionRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			assert.False(t, d.Probe(tt.payload, tt.dir, 1))
			_, ok := d.Decode(tt.payload, tt.dir, 1)
			assert.False(t, ok)
		})
	}
}

func TestDecodeEchoesTLS(t *testing.T) {
	d := New()
	d.SetTLS(true)
	rec, ok := d.Decode(frame('Q', 10, []byte("SELECT 1")), capture.DirectionRequest, 1)
	require.True(t, ok)
	assert.True(t, rec.TLS)
}

func TestResetRestoresFreshState(t *testing.T) {
	d := New()
	d.SetTLS(true)
	require.True(t, d.Probe(frame('Q', 10, []byte("SELECT 1")), capture.DirectionRequest, 42))

	d.Reset()
	assert.Equal(t, New(), d)

	// A decode after Reset reflects only the new payload.
	rec, ok := d.Decode(frame('E', 4, nil), capture.DirectionResponse, 50)
	require.True(t, ok)
	assert.False(t, rec.TLS)
	assert.Equal(t, "", rec.Request.Query)
	assert.Equal(t, pgparser.StatusError, rec.Response.Status)
	assert.Equal(t, uint64(50), rec.StartTime)
}
