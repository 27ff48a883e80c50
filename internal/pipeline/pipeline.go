package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/flowscope/pgtrace/internal/capture"
	"github.com/flowscope/pgtrace/internal/correlate"
	"github.com/flowscope/pgtrace/internal/decode"
	"github.com/flowscope/pgtrace/internal/export"
)

// Config bounds the pipeline's per-flow state.
type Config struct {
	// MaxFlows caps the number of live decoder instances (one per
	// flow direction).
	MaxFlows int

	// MaxPending caps the number of requests awaiting a response.
	MaxPending int

	// PendingTTL is how long an unanswered request is held before it
	// ages out.
	PendingTTL time.Duration
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() Config {
	return Config{
		MaxFlows:   4096,
		MaxPending: 4096,
		PendingTTL: 30 * time.Second,
	}
}

type decoderKey struct {
	flow uint64
	dir  capture.Direction
}

// Pipeline drives segments through probe, decode, and correlation.
// It is single-threaded: segments arrive in capture order from one
// goroutine, so no locking is needed around the decoder table.
type Pipeline struct {
	log        *slog.Logger
	metrics    *Metrics
	correlator *correlate.Correlator
	decoders   *simplelru.LRU[decoderKey, *decode.Decoder]
}

func New(cfg Config, metrics *Metrics, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.Default()
	}
	decoders, err := simplelru.NewLRU[decoderKey, *decode.Decoder](cfg.MaxFlows, nil)
	if err != nil {
		return nil, fmt.Errorf("decoder table: %w", err)
	}
	return &Pipeline{
		log:        log,
		metrics:    metrics,
		correlator: correlate.New(cfg.MaxPending, cfg.PendingTTL, log),
		decoders:   decoders,
	}, nil
}

// Handle runs one captured segment through the decode pipeline. It
// returns a span when the segment completed a request/response
// exchange (or was an orphan response), and false while the exchange
// is still open or the payload was not PostgreSQL.
func (p *Pipeline) Handle(seg capture.Segment) (export.Span, bool) {
	dec := p.decoder(seg.Flow, seg.Direction)
	dec.Reset()
	dec.SetTLS(seg.TLS)

	if !dec.Probe(seg.Payload, seg.Direction, seg.Time) {
		p.metrics.ProbesTotal.WithLabelValues(seg.Direction.String(), "reject").Inc()
		return export.Span{}, false
	}
	p.metrics.ProbesTotal.WithLabelValues(seg.Direction.String(), "accept").Inc()

	rec, ok := dec.Decode(seg.Payload, seg.Direction, seg.Time)
	if !ok {
		return export.Span{}, false
	}

	merged, outcome := p.correlator.Observe(seg.Flow, rec)
	switch outcome {
	case correlate.OutcomeCompleted:
		p.metrics.RecordsTotal.WithLabelValues("completed").Inc()
	case correlate.OutcomeOrphan:
		p.metrics.RecordsTotal.WithLabelValues("orphan").Inc()
	default:
		p.metrics.RecordsTotal.WithLabelValues("pending").Inc()
	}
	p.metrics.PendingExchanges.Set(float64(p.correlator.Len()))

	if merged == nil {
		return export.Span{}, false
	}
	return export.FromRecord(merged), true
}

func (p *Pipeline) decoder(flow uint64, dir capture.Direction) *decode.Decoder {
	key := decoderKey{flow: flow, dir: dir}
	if d, ok := p.decoders.Get(key); ok {
		return d
	}
	d := decode.New()
	p.decoders.Add(key, d)
	return d
}
