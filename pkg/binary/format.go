// Package binary compiles validated configurations into compact artifacts
// and loads them back without parsing.
//
// # Layout
//
// All integers are little endian.
//
//	offset  size  field
//	0       4     magic "TSKB"
//	4       2     format version
//	6       1     flags: bit 0 compressed, bits 1-3 algorithm
//	7       4     checksum: low 32 bits of XXH3-64 over the uncompressed payload
//	11      4     stored body length
//	15      ...   payload (possibly compressed)
//
// The body length makes truncation detectable even when a codec accepts
// a cut-off stream.
//
// The payload is a constant pool followed by a node table:
//
//	pool    uvarint count, then count entries: tag byte + data
//	nodes   uvarint count, then count 24-byte records in pre-order
//
// A record is {kind u8, flags u8, aux u16, name u32, value u32, count u32,
// next u32, parent u32}. name and value index the pool (0xFFFFFFFF for
// none), count is the number of children, next is the distance in
// records to the next sibling (0 for the last child) and parent the
// distance back to the parent record.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

// Format constants.
const (
	Magic      = "TSKB"
	Version    = uint16(1)
	HeaderSize = 15
)

// Extension is the conventional artifact file extension.
const Extension = ".tskb"

const (
	flagCompressed = 1 << 0
	algoShift      = 1
	algoMask       = 0x7 << algoShift
)

// Load errors. Every refusal wraps exactly one of these.
var (
	ErrTruncated          = errors.New("artifact truncated")
	ErrBadMagic           = errors.New("not a tusk artifact")
	ErrUnsupportedVersion = errors.New("unsupported artifact version")
	ErrUnknownAlgorithm   = errors.New("unknown compression algorithm")
	ErrChecksum           = errors.New("artifact checksum mismatch")
	ErrCorrupt            = errors.New("artifact corrupt")
	ErrRefused            = errors.New("compilation refused")
)

// RefusedError is returned by Compile when the analysis result carries
// hard errors.
type RefusedError struct {
	Reason string
	Errors []core.Diagnostic
}

func (e *RefusedError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s: %s", ErrRefused, e.Reason)
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		msgs = append(msgs, d.String())
	}
	return fmt.Sprintf("%s: %d error(s):\n  %s", ErrRefused, len(e.Errors), strings.Join(msgs, "\n  "))
}

// Unwrap returns ErrRefused.
func (e *RefusedError) Unwrap() error {
	return ErrRefused
}

// Algorithm identifies a payload compression algorithm.
type Algorithm uint8

// Compression algorithms.
const (
	AlgorithmNone Algorithm = iota
	AlgorithmGzip
	AlgorithmLZ4
	AlgorithmZstd
)

var algorithmNames = map[Algorithm]string{
	AlgorithmNone: "none",
	AlgorithmGzip: "gzip",
	AlgorithmLZ4:  "lz4",
	AlgorithmZstd: "zstd",
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	_, ok := algorithmNames[a]
	return ok
}

// ParseAlgorithm converts a name such as "zstd" to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range algorithmNames {
		if name == s {
			return a, nil
		}
	}
	return AlgorithmNone, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	alg, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = alg
	return nil
}

// Header is the fixed-size artifact header.
type Header struct {
	Version    uint16
	Compressed bool
	Algorithm  Algorithm
	Checksum   uint32
	// BodySize is the number of bytes following the header.
	BodySize uint32
}

func (h Header) flags() byte {
	f := byte(h.Algorithm) << algoShift
	if h.Compressed {
		f |= flagCompressed
	}
	return f
}

func (h Header) appendTo(b []byte) []byte {
	b = append(b, Magic...)
	b = binary.LittleEndian.AppendUint16(b, h.Version)
	b = append(b, h.flags())
	b = binary.LittleEndian.AppendUint32(b, h.Checksum)
	return binary.LittleEndian.AppendUint32(b, h.BodySize)
}

// ReadHeader decodes and validates the header of an artifact.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, len(data), HeaderSize)
	}
	if string(data[:4]) != Magic {
		return Header{}, fmt.Errorf("%w: magic %q", ErrBadMagic, data[:4])
	}

	h := Header{
		Version:  binary.LittleEndian.Uint16(data[4:6]),
		Checksum: binary.LittleEndian.Uint32(data[7:11]),
		BodySize: binary.LittleEndian.Uint32(data[11:15]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d (this build reads %d)", ErrUnsupportedVersion, h.Version, Version)
	}

	flags := data[6]
	if flags&^(flagCompressed|algoMask) != 0 {
		return Header{}, fmt.Errorf("%w: reserved flag bits set (%#02x)", ErrCorrupt, flags)
	}
	h.Compressed = flags&flagCompressed != 0
	h.Algorithm = Algorithm((flags & algoMask) >> algoShift)
	if !h.Algorithm.Valid() {
		return Header{}, fmt.Errorf("%w: id %d", ErrUnknownAlgorithm, uint8(h.Algorithm))
	}
	if h.Compressed == (h.Algorithm == AlgorithmNone) {
		return Header{}, fmt.Errorf("%w: compressed flag does not match algorithm %s", ErrCorrupt, h.Algorithm)
	}
	return h, nil
}
