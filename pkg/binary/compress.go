package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// MaxPayloadSize caps the decompressed payload.
const MaxPayloadSize = 64 << 20

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// compress encodes payload with alg. A zero level selects the
// algorithm's default.
func compress(alg Algorithm, level int, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser

	switch alg {
	case AlgorithmGzip:
		if level == 0 {
			level = gzip.DefaultCompression
		}
		gw, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("gzip level %d: %w", level, err)
		}
		w = gw

	case AlgorithmLZ4:
		if level < 0 || level >= len(lz4Levels) {
			return nil, fmt.Errorf("lz4 level %d out of range 0-%d", level, len(lz4Levels)-1)
		}
		lw := lz4.NewWriter(&buf)
		if err := lw.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
			return nil, fmt.Errorf("lz4 options: %w", err)
		}
		w = lw

	case AlgorithmZstd:
		opts := []zstd.EOption{zstd.WithEncoderCRC(false)}
		if level != 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		zw, err := zstd.NewWriter(&buf, opts...)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		w = zw

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}

	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%s compress: %w", alg, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s compress: %w", alg, err)
	}
	return buf.Bytes(), nil
}

// decompress reverses compress. Any decoder failure is reported as
// corruption.
func decompress(alg Algorithm, data []byte) ([]byte, error) {
	src := bytes.NewReader(data)
	var r io.Reader

	switch alg {
	case AlgorithmGzip:
		gr, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrCorrupt, err)
		}
		defer gr.Close()
		r = gr

	case AlgorithmLZ4:
		r = lz4.NewReader(src)

	case AlgorithmZstd:
		zr, err := zstd.NewReader(src, zstd.WithDecoderMaxMemory(MaxPayloadSize), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		defer zr.Close()
		r = zr

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}

	out, err := io.ReadAll(io.LimitReader(r, MaxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, alg, err)
	}
	if len(out) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrCorrupt, MaxPayloadSize)
	}
	return out, nil
}
