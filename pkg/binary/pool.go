package binary

import (
	"encoding/binary"
	"fmt"
	"math"
)

// noRef marks an absent pool reference.
const noRef = math.MaxUint32

const (
	tagString byte = 1
	tagInt    byte = 2
	tagFloat  byte = 3
)

type poolKey struct {
	tag byte
	s   string
	i   int64
	f   uint64
}

// poolWriter deduplicates constants in first-use order.
type poolWriter struct {
	index map[poolKey]uint32
	keys  []poolKey
}

func newPoolWriter() *poolWriter {
	return &poolWriter{index: make(map[poolKey]uint32)}
}

func (p *poolWriter) add(k poolKey) uint32 {
	if idx, ok := p.index[k]; ok {
		return idx
	}
	idx := uint32(len(p.keys))
	p.index[k] = idx
	p.keys = append(p.keys, k)
	return idx
}

func (p *poolWriter) str(s string) uint32 { return p.add(poolKey{tag: tagString, s: s}) }
func (p *poolWriter) int(i int64) uint32  { return p.add(poolKey{tag: tagInt, i: i}) }
func (p *poolWriter) float(f float64) uint32 {
	return p.add(poolKey{tag: tagFloat, f: math.Float64bits(f)})
}

func (p *poolWriter) appendTo(b []byte) []byte {
	b = binary.AppendUvarint(b, uint64(len(p.keys)))
	for _, k := range p.keys {
		b = append(b, k.tag)
		switch k.tag {
		case tagString:
			b = binary.AppendUvarint(b, uint64(len(k.s)))
			b = append(b, k.s...)
		case tagInt:
			b = binary.AppendVarint(b, k.i)
		case tagFloat:
			b = binary.LittleEndian.AppendUint64(b, k.f)
		}
	}
	return b
}

// constant is one decoded pool entry.
type constant struct {
	tag byte
	s   string
	i   int64
	f   float64
}

// pool is a decoded constant pool.
type pool []constant

// readPool decodes the pool at the start of b and returns the rest.
func readPool(b []byte) (pool, []byte, error) {
	n, w := binary.Uvarint(b)
	if w <= 0 {
		return nil, nil, fmt.Errorf("%w: bad pool count", ErrCorrupt)
	}
	b = b[w:]
	// Every entry takes at least two bytes.
	if n > uint64(len(b))/2 {
		return nil, nil, fmt.Errorf("%w: pool count %d exceeds payload", ErrCorrupt, n)
	}

	out := make(pool, 0, n)
	for i := uint64(0); i < n; i++ {
		if len(b) == 0 {
			return nil, nil, fmt.Errorf("%w: pool entry %d missing", ErrCorrupt, i)
		}
		tag := b[0]
		b = b[1:]
		switch tag {
		case tagString:
			l, w := binary.Uvarint(b)
			if w <= 0 || l > uint64(len(b)-w) {
				return nil, nil, fmt.Errorf("%w: pool string %d out of bounds", ErrCorrupt, i)
			}
			out = append(out, constant{tag: tag, s: string(b[w : w+int(l)])})
			b = b[w+int(l):]
		case tagInt:
			v, w := binary.Varint(b)
			if w <= 0 {
				return nil, nil, fmt.Errorf("%w: pool integer %d malformed", ErrCorrupt, i)
			}
			out = append(out, constant{tag: tag, i: v})
			b = b[w:]
		case tagFloat:
			if len(b) < 8 {
				return nil, nil, fmt.Errorf("%w: pool float %d truncated", ErrCorrupt, i)
			}
			out = append(out, constant{tag: tag, f: math.Float64frombits(binary.LittleEndian.Uint64(b))})
			b = b[8:]
		default:
			return nil, nil, fmt.Errorf("%w: pool entry %d has tag %d", ErrCorrupt, i, tag)
		}
	}
	return out, b, nil
}

func (p pool) get(idx uint32, tag byte) (constant, error) {
	if uint64(idx) >= uint64(len(p)) {
		return constant{}, fmt.Errorf("%w: pool index %d out of range", ErrCorrupt, idx)
	}
	c := p[idx]
	if c.tag != tag {
		return constant{}, fmt.Errorf("%w: pool entry %d has tag %d, want %d", ErrCorrupt, idx, c.tag, tag)
	}
	return c, nil
}

func (p pool) str(idx uint32) (string, error) {
	c, err := p.get(idx, tagString)
	return c.s, err
}

func (p pool) int(idx uint32) (int64, error) {
	c, err := p.get(idx, tagInt)
	return c.i, err
}

func (p pool) float(idx uint32) (float64, error) {
	c, err := p.get(idx, tagFloat)
	return c.f, err
}
