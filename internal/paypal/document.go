package paypal

import (
	"bytes"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Document is a loosely-typed processor response. Lookups never fail: a
// missing key, out-of-range index or type mismatch yields an empty Document.
type Document struct {
	v *structpb.Value
}

// ParseDocument decodes a JSON object. Empty or malformed bodies yield an
// empty Document.
func ParseDocument(body []byte) *Document {
	s := &structpb.Struct{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := protojson.Unmarshal(body, s); err != nil {
			s = &structpb.Struct{}
		}
	}
	return &Document{v: structpb.NewStructValue(s)}
}

// Get walks path, where string elements select object keys and int
// elements select list indexes.
func (d *Document) Get(path ...any) *Document {
	cur := d.v
	for _, p := range path {
		switch k := p.(type) {
		case string:
			cur = cur.GetStructValue().GetFields()[k]
		case int:
			list := cur.GetListValue().GetValues()
			if k < 0 || k >= len(list) {
				return &Document{}
			}
			cur = list[k]
		default:
			return &Document{}
		}
		if cur == nil {
			return &Document{}
		}
	}
	return &Document{v: cur}
}

// Text returns the string at path, or "" when absent or not a string.
func (d *Document) Text(path ...any) string {
	return d.Get(path...).v.GetStringValue()
}

// Exists reports whether the document holds a value.
func (d *Document) Exists() bool {
	return d.v != nil && d.v.GetKind() != nil
}

// Map returns the document as plain Go values. Non-object documents yield an
// empty map.
func (d *Document) Map() map[string]any {
	if s := d.v.GetStructValue(); s != nil {
		return s.AsMap()
	}
	return map[string]any{}
}

func (d *Document) MarshalJSON() ([]byte, error) {
	if s := d.v.GetStructValue(); s != nil {
		return protojson.Marshal(s)
	}
	return []byte("{}"), nil
}
