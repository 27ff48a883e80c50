package replay

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscope/pgtrace/internal/capture"
)

func TestParseLine(t *testing.T) {
	payload := []byte{'Q', 0, 0, 0, 10, 'S', 'E', 'L', 'E', 'C', 'T', ' ', '1'}

	tests := []struct {
		name      string
		line      string
		expectErr bool
		expected  capture.Segment
	}{
		{
			name: "request segment",
			line: "42 c2s 1000 " + hex.EncodeToString(payload),
			expected: capture.Segment{
				Flow:      42,
				Direction: capture.DirectionRequest,
				Time:      1000,
				Payload:   payload,
			},
		},
		{
			name: "response segment with tls",
			line: "42 s2c 2000 43000000044f4b00 tls",
			expected: capture.Segment{
				Flow:      42,
				Direction: capture.DirectionResponse,
				Time:      2000,
				TLS:       true,
				Payload:   []byte{'C', 0, 0, 0, 4, 'O', 'K', 0},
			},
		},
		{
			name:      "too few fields",
			line:      "42 c2s 1000",
			expectErr: true,
		},
		{
			name:      "bad direction",
			line:      "42 up 1000 51",
			expectErr: true,
		},
		{
			name:      "bad flow id",
			line:      "abc c2s 1000 51",
			expectErr: true,
		},
		{
			name:      "bad hex payload",
			line:      "42 c2s 1000 zz",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := ParseLine(tt.line)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, seg)
		})
	}
}

func TestReadSkipsCommentsAndBlanks(t *testing.T) {
	input := strings.Join([]string{
		"# capture from flow 1",
		"",
		"1 c2s 100 5100000004",
		"1 s2c 200 4300000004",
	}, "\n")

	var segs []capture.Segment
	err := Read(strings.NewReader(input), func(seg capture.Segment) error {
		segs = append(segs, seg)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, capture.DirectionRequest, segs[0].Direction)
	assert.Equal(t, capture.DirectionResponse, segs[1].Direction)
}

func TestReadReportsLineNumber(t *testing.T) {
	input := "1 c2s 100 5100000004\nnot a segment line\n"
	err := Read(strings.NewReader(input), func(capture.Segment) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
