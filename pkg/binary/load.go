package binary

import (
	"fmt"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/value"
)

// Load decodes an artifact into a configuration value tree.
func Load(data []byte) (*value.Tree, error) {
	cfg, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return value.FromAST(cfg), nil
}

// Decode validates an artifact and rebuilds its AST. Positions are not
// stored, so every node reports the zero position.
func Decode(data []byte) (*core.Configuration, error) {
	_, payload, err := open(data)
	if err != nil {
		return nil, err
	}
	cfg, _, err := decodePayload(payload)
	return cfg, err
}

// open checks the header, decompresses and verifies the checksum before
// any payload byte is interpreted.
func open(data []byte) (Header, []byte, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return Header{}, nil, err
	}

	payload := data[HeaderSize:]
	switch n := uint64(len(payload)); {
	case n < uint64(h.BodySize):
		return Header{}, nil, fmt.Errorf("%w: body is %d bytes, header says %d", ErrTruncated, n, h.BodySize)
	case n > uint64(h.BodySize):
		return Header{}, nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, n-uint64(h.BodySize))
	}
	if h.Compressed {
		payload, err = decompress(h.Algorithm, payload)
		if err != nil {
			return Header{}, nil, err
		}
	}
	if sum := checksum(payload); sum != h.Checksum {
		return Header{}, nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, h.Checksum, sum)
	}
	return h, payload, nil
}

// Info summarizes an artifact.
type Info struct {
	Header      Header `json:"header"`
	Size        int    `json:"size"`
	PayloadSize int    `json:"payload_size"`
	Constants   int    `json:"constants"`
	Nodes       int    `json:"nodes"`
	// Kinds counts node records by kind name.
	Kinds map[string]int `json:"kinds"`
}

// Ratio is the stored size relative to the uncompressed payload.
func (i Info) Ratio() float64 {
	if i.PayloadSize == 0 {
		return 1
	}
	return float64(i.Size-HeaderSize) / float64(i.PayloadSize)
}

// Describe validates an artifact fully and reports its shape.
func Describe(data []byte) (Info, error) {
	h, payload, err := open(data)
	if err != nil {
		return Info{}, err
	}
	_, d, err := decodePayload(payload)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Header:      h,
		Size:        len(data),
		PayloadSize: len(payload),
		Constants:   len(d.pool),
		Nodes:       len(d.recs),
		Kinds:       make(map[string]int),
	}
	for _, r := range d.recs {
		info.Kinds[r.kind.String()]++
	}
	return info, nil
}
