package binary

import (
	"fmt"
	"math"

	"github.com/zeebo/xxh3"

	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/core"
)

// DefaultThreshold is the payload size below which artifacts are stored
// raw.
const DefaultThreshold = 512

type options struct {
	algorithm Algorithm
	threshold int
	level     int
}

// Option configures Compile.
type Option func(*options)

// WithAlgorithm selects the compression algorithm. AlgorithmNone always
// stores the payload raw.
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) { o.algorithm = alg }
}

// WithThreshold sets the minimum payload size that is compressed.
func WithThreshold(n int) Option {
	return func(o *options) { o.threshold = n }
}

// WithLevel sets the compression level. Zero selects the algorithm's
// default.
func WithLevel(level int) Option {
	return func(o *options) { o.level = level }
}

// Compile serializes a validated configuration. It refuses when res is
// nil or records any error, so an artifact always represents a
// configuration that passed analysis.
func Compile(cfg *core.Configuration, res *analyzer.Result, opts ...Option) ([]byte, error) {
	switch {
	case cfg == nil:
		return nil, &RefusedError{Reason: "no configuration"}
	case res == nil:
		return nil, &RefusedError{Reason: "configuration was not analyzed"}
	case res.HasErrors():
		return nil, &RefusedError{Reason: "analysis reported errors", Errors: res.Errors}
	}

	o := options{algorithm: AlgorithmZstd, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.algorithm.Valid() {
		return nil, ErrUnknownAlgorithm
	}

	payload, err := encodePayload(cfg)
	if err != nil {
		return nil, err
	}

	h := Header{Version: Version, Checksum: checksum(payload)}
	body := payload
	if o.algorithm != AlgorithmNone && len(payload) >= o.threshold {
		packed, err := compress(o.algorithm, o.level, payload)
		if err != nil {
			return nil, err
		}
		if len(packed) < len(payload) {
			h.Compressed = true
			h.Algorithm = o.algorithm
			body = packed
		}
	}

	if uint64(len(body)) > math.MaxUint32 {
		return nil, fmt.Errorf("payload of %d bytes is too large", len(body))
	}
	h.BodySize = uint32(len(body))

	out := make([]byte, 0, HeaderSize+len(body))
	out = h.appendTo(out)
	return append(out, body...), nil
}

func checksum(payload []byte) uint32 {
	return uint32(xxh3.Hash(payload))
}
