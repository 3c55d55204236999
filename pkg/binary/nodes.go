package binary

import (
	"encoding/binary"
	"fmt"
)

// recordSize is the encoded size of one node record.
const recordSize = 24

// maxDepth bounds nesting when decoding.
const maxDepth = 1000

// kind identifies the node a record encodes. Values are part of the
// format and must not be renumbered.
type kind uint8

const (
	kindInvalid kind = iota
	kindConfiguration
	kindSection
	kindGlobal
	kindAssignment
	kindInclude
	kindLiteral
	kindTemplate
	kindSlot
	kindVarRef
	kindBinary
	kindUnary
	kindTernary
	kindRange
	kindArray
	kindObject
	kindField
	kindNamedObject
	kindDirective
	kindCrossFile
	kindProperty
	kindIndex
	kindMethod
	kindGrouping
	kindCount
)

var kindNames = [...]string{
	kindInvalid:       "invalid",
	kindConfiguration: "configuration",
	kindSection:       "section",
	kindGlobal:        "global",
	kindAssignment:    "assignment",
	kindInclude:       "include",
	kindLiteral:       "literal",
	kindTemplate:      "template",
	kindSlot:          "slot",
	kindVarRef:        "variable",
	kindBinary:        "binary",
	kindUnary:         "unary",
	kindTernary:       "ternary",
	kindRange:         "range",
	kindArray:         "array",
	kindObject:        "object",
	kindField:         "field",
	kindNamedObject:   "named object",
	kindDirective:     "directive",
	kindCrossFile:     "cross-file call",
	kindProperty:      "property",
	kindIndex:         "index",
	kindMethod:        "method call",
	kindGrouping:      "grouping",
}

func (k kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

const flagBit = 1 << 0

// record is one fixed-size node table entry.
type record struct {
	kind   kind
	flags  uint8
	aux    uint16
	name   uint32
	value  uint32
	count  uint32
	next   uint32
	parent uint32
}

func (r record) appendTo(b []byte) []byte {
	b = append(b, byte(r.kind), r.flags)
	b = binary.LittleEndian.AppendUint16(b, r.aux)
	b = binary.LittleEndian.AppendUint32(b, r.name)
	b = binary.LittleEndian.AppendUint32(b, r.value)
	b = binary.LittleEndian.AppendUint32(b, r.count)
	b = binary.LittleEndian.AppendUint32(b, r.next)
	return binary.LittleEndian.AppendUint32(b, r.parent)
}

func readRecord(b []byte) record {
	return record{
		kind:   kind(b[0]),
		flags:  b[1],
		aux:    binary.LittleEndian.Uint16(b[2:4]),
		name:   binary.LittleEndian.Uint32(b[4:8]),
		value:  binary.LittleEndian.Uint32(b[8:12]),
		count:  binary.LittleEndian.Uint32(b[12:16]),
		next:   binary.LittleEndian.Uint32(b[16:20]),
		parent: binary.LittleEndian.Uint32(b[20:24]),
	}
}

// readRecords decodes the node table, which must fill b exactly.
func readRecords(b []byte) ([]record, error) {
	n, w := binary.Uvarint(b)
	if w <= 0 {
		return nil, fmt.Errorf("%w: bad node count", ErrCorrupt)
	}
	b = b[w:]
	if n == 0 {
		return nil, fmt.Errorf("%w: empty node table", ErrCorrupt)
	}
	if n > uint64(len(b))/recordSize || uint64(len(b)) != n*recordSize {
		return nil, fmt.Errorf("%w: node table is %d bytes, want %d records", ErrCorrupt, len(b), n)
	}

	out := make([]record, n)
	for i := range out {
		out[i] = readRecord(b[i*recordSize:])
	}
	return out, nil
}
