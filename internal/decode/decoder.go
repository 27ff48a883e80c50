package decode

import (
	"github.com/flowscope/pgtrace/internal/capture"
	"github.com/flowscope/pgtrace/internal/parsers/pgparser"
)

// Decoder is the two-phase entry point the detection framework calls:
// a cheap Probe while it is still guessing the protocol, then Decode
// on whichever decoder accepted. A successful Probe caches its result
// so the following Decode of the same payload does no work. Reset
// must be called between unrelated payloads.
type Decoder struct {
	rec    Record
	parsed bool
}

func New() *Decoder {
	return &Decoder{}
}

// SetTLS records whether the transport under this flow was encrypted.
// The flag is opaque here; it is echoed verbatim on every record.
func (d *Decoder) SetTLS(tls bool) {
	d.rec.TLS = tls
}

// Probe reports whether payload is a PostgreSQL message this decoder
// handles for dir. On success the decoded record is cached; on
// failure the decoder stays empty so the host can try other protocol
// decoders.
func (d *Decoder) Probe(payload []byte, dir capture.Direction, ts uint64) bool {
	d.rec.StartTime = ts
	d.rec.EndTime = ts
	d.rec.Direction = dir
	if !d.parse(payload, dir) {
		return false
	}
	d.parsed = true
	return true
}

// Decode returns the decoded record for payload. When the preceding
// Probe on the same payload succeeded the cached record is returned;
// otherwise the full validate-and-extract runs and fails the same way
// Probe does.
func (d *Decoder) Decode(payload []byte, dir capture.Direction, ts uint64) (Record, bool) {
	if d.parsed {
		return d.rec, true
	}
	d.rec.StartTime = ts
	d.rec.EndTime = ts
	d.rec.Direction = dir
	if !d.parse(payload, dir) {
		return Record{}, false
	}
	return d.rec, true
}

// Reset restores the freshly constructed state, discarding everything
// including the TLS flag.
func (d *Decoder) Reset() {
	*d = Decoder{}
}

func (d *Decoder) parse(payload []byte, dir capture.Direction) bool {
	if !pgparser.ValidateFrame(payload, dir) {
		return false
	}
	switch dir {
	case capture.DirectionRequest:
		d.rec.Request = pgparser.ParseRequest(payload)
	case capture.DirectionResponse:
		d.rec.Response = pgparser.ParseResponse(payload)
	}
	return true
}
