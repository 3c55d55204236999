package binary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/parser"
)

// wrap frames a payload with a raw header and a valid checksum, so the
// structural checks are reached.
func wrap(payload []byte) []byte {
	h := Header{Version: Version, Checksum: checksum(payload), BodySize: uint32(len(payload))}
	return append(h.appendTo(nil), payload...)
}

func payloadOf(t *testing.T, src string) []byte {
	t.Helper()
	cfg, errs := parser.Parse(src)
	require.NoError(t, errs.Err())
	payload, err := encodePayload(cfg)
	require.NoError(t, err)
	return payload
}

func TestDecode_NeverPanics(t *testing.T) {
	payload := payloadOf(t, "$g = 1\n[s]\na: [1, {b: $g + 2}]\nc: x.y[0].z(1)\nd: @env(\"A\")\n")

	for i := range payload {
		for _, mask := range []byte{0x01, 0x02, 0x10, 0x80, 0xFF} {
			mutated := append([]byte(nil), payload...)
			mutated[i] ^= mask
			assert.NotPanics(t, func() {
				_, _ = Decode(wrap(mutated))
			}, "byte %d mask %#x", i, mask)
		}
	}
}

func TestDecode_StructuralErrors(t *testing.T) {
	valid := func() (*poolWriter, []record) {
		p := newPoolWriter()
		return p, []record{
			{kind: kindConfiguration, name: noRef, value: noRef, count: 1},
			{kind: kindAssignment, name: p.str("a"), value: noRef, count: 1, parent: 1},
			{kind: kindLiteral, aux: uint16(core.TypeInteger), name: noRef, value: p.int(7), parent: 1},
		}
	}
	build := func(p *poolWriter, recs []record) []byte {
		b := p.appendTo(nil)
		b = append(b, byte(len(recs)))
		for _, r := range recs {
			b = r.appendTo(b)
		}
		return wrap(b)
	}

	p, recs := valid()
	cfg, err := Decode(build(p, recs))
	require.NoError(t, err)
	require.Len(t, cfg.Statements, 1)
	assert.Equal(t, "a", cfg.Statements[0].(*core.Assignment).Key)

	tests := []struct {
		name   string
		mutate func(p *poolWriter, recs []record) []record
	}{
		{"root is not a configuration", func(_ *poolWriter, recs []record) []record {
			recs[0].kind = kindSection
			return recs
		}},
		{"unknown kind", func(_ *poolWriter, recs []record) []record {
			recs[2].kind = 200
			return recs
		}},
		{"bad parent offset", func(_ *poolWriter, recs []record) []record {
			recs[2].parent = 2
			return recs
		}},
		{"child count past end", func(_ *poolWriter, recs []record) []record {
			recs[0].count = 5
			return recs
		}},
		{"unreachable node", func(_ *poolWriter, recs []record) []record {
			recs[0].count = 0
			return recs
		}},
		{"sibling link on last child", func(_ *poolWriter, recs []record) []record {
			recs[1].next = 2
			return recs
		}},
		{"pool index out of range", func(_ *poolWriter, recs []record) []record {
			recs[1].name = 99
			return recs
		}},
		{"pool entry of wrong type", func(_ *poolWriter, recs []record) []record {
			recs[2].aux = uint16(core.TypeString)
			return recs
		}},
		{"bad operator", func(p *poolWriter, recs []record) []record {
			recs[2] = record{kind: kindUnary, aux: uint16(core.OpAdd), name: noRef, value: noRef, parent: 1}
			return recs
		}},
		{"missing operand", func(_ *poolWriter, recs []record) []record {
			recs[1].count = 0
			return recs
		}},
		{"bad dialect", func(p *poolWriter, recs []record) []record {
			recs[1] = record{kind: kindSection, aux: 9, name: p.str("s"), value: noRef, parent: 1}
			return recs[:2]
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, recs := valid()
			recs = tt.mutate(p, recs)
			_, err := Decode(build(p, recs))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
		})
	}
}

func TestDecode_DepthLimit(t *testing.T) {
	nested := func(depth int) *core.Configuration {
		var e core.Expr = &core.Literal{Type: core.TypeNull}
		for range depth {
			e = &core.Grouping{Inner: e}
		}
		return &core.Configuration{Statements: []core.Stmt{&core.Assignment{Key: "k", Value: e}}}
	}

	payload, err := encodePayload(nested(500))
	require.NoError(t, err)
	_, err = Decode(wrap(payload))
	require.NoError(t, err)

	payload, err = encodePayload(nested(maxDepth + 10))
	require.NoError(t, err)
	_, err = Decode(wrap(payload))
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestEncode_IncompleteTree(t *testing.T) {
	cfg := &core.Configuration{Statements: []core.Stmt{&core.Assignment{Key: "k"}}}
	_, err := encodePayload(cfg)
	assert.True(t, errors.Is(err, ErrRefused))
}

func TestReadPool_Bounds(t *testing.T) {
	tests := map[string][]byte{
		"empty":           {},
		"count too large": {0x7f, tagString, 0},
		"string overrun":  {1, tagString, 10, 'a'},
		"short float":     {1, tagFloat, 1, 2, 3},
		"unknown tag":     {1, 9, 0},
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := readPool(b)
			assert.True(t, errors.Is(err, ErrCorrupt))
		})
	}
}
