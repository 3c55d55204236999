package value

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

// MarshalJSON encodes v keeping object key order. Ranges encode as
// {"min", "max", "type": "range"}; expressions as their source text.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON encodes o keeping key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := o.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON encodes the tree root, with includes under "@include".
func (t *Tree) MarshalJSON() ([]byte, error) {
	if len(t.Includes) == 0 {
		return t.Root.MarshalJSON()
	}
	root := t.Root.Clone()
	includes := make([]*Value, len(t.Includes))
	for i, p := range t.Includes {
		includes[i] = String(p)
	}
	root.Set("@include", Array(includes...))
	return root.MarshalJSON()
}

func (v *Value) writeJSON(buf *bytes.Buffer) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		b, err := json.Marshal(v.Float)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		return writeJSONString(buf, v.Str)
	case KindExpr:
		return writeJSONString(buf, core.FormatExpr(v.Expr))
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		return v.Object.writeJSON(buf)
	case KindRange:
		buf.WriteString(`{"min":`)
		buf.WriteString(strconv.FormatInt(v.Min, 10))
		buf.WriteString(`,"max":`)
		buf.WriteString(strconv.FormatInt(v.Max, 10))
		buf.WriteString(`,"type":"range"}`)
	}
	return nil
}

func (o *Object) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	i := 0
	for k, v := range o.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		if err := writeJSONString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := v.writeJSON(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// MarshalYAML implements yaml.Marshaler, keeping object key order.
func (v *Value) MarshalYAML() (any, error) {
	return v.yamlNode(), nil
}

// MarshalYAML implements yaml.Marshaler, keeping key order.
func (o *Object) MarshalYAML() (any, error) {
	return o.yamlNode(), nil
}

// MarshalYAML implements yaml.Marshaler.
func (t *Tree) MarshalYAML() (any, error) {
	node := t.Root.yamlNode()
	if len(t.Includes) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, p := range t.Includes {
			seq.Content = append(seq.Content, scalar("!!str", p))
		}
		node.Content = append(node.Content, scalar("!!str", "@include"), seq)
	}
	return node, nil
}

func scalar(tag, text string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: text}
}

func (v *Value) yamlNode() *yaml.Node {
	if v == nil {
		return scalar("!!null", "null")
	}
	switch v.Kind {
	case KindBool:
		return scalar("!!bool", strconv.FormatBool(v.Bool))
	case KindInt:
		return scalar("!!int", strconv.FormatInt(v.Int, 10))
	case KindFloat:
		return scalar("!!float", yamlFloat(v.Float))
	case KindString:
		return scalar("!!str", v.Str)
	case KindExpr:
		n := scalar("!!str", core.FormatExpr(v.Expr))
		n.Style = yaml.DoubleQuotedStyle
		return n
	case KindArray:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items {
			seq.Content = append(seq.Content, item.yamlNode())
		}
		return seq
	case KindObject:
		return v.Object.yamlNode()
	case KindRange:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle}
		m.Content = append(m.Content,
			scalar("!!str", "min"), scalar("!!int", strconv.FormatInt(v.Min, 10)),
			scalar("!!str", "max"), scalar("!!int", strconv.FormatInt(v.Max, 10)),
			scalar("!!str", "type"), scalar("!!str", "range"),
		)
		return m
	}
	return scalar("!!null", "null")
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (o *Object) yamlNode() *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range o.All() {
		m.Content = append(m.Content, scalar("!!str", k), v.yamlNode())
	}
	return m
}
