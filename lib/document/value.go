package document

import (
	"fmt"
	"math"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindDocument
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindDocument:
		return "document"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Value is a single typed value stored under a Document key.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	doc  *Document
	list []*Document
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double wraps a float64.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Object wraps a nested Document. A nil Document yields the null Value.
func Object(d *Document) Value {
	if d == nil {
		return Null()
	}
	return Value{kind: KindDocument, doc: d}
}

// List wraps a list of Documents.
func List(docs ...*Document) Value {
	if docs == nil {
		docs = []*Document{}
	}
	return Value{kind: KindList, list: docs}
}

// Kind returns the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean and whether the value is a boolean.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer and whether the value is an integer.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsDouble returns the float and whether the value is a double.
func (v Value) AsDouble() (float64, bool) { return v.f, v.kind == KindDouble }

// AsString returns the string and whether the value is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsObject returns the nested Document and whether the value is a Document.
func (v Value) AsObject() (*Document, bool) { return v.doc, v.kind == KindDocument }

// AsList returns the Document list and whether the value is a list.
func (v Value) AsList() ([]*Document, bool) { return v.list, v.kind == KindList }

// Equal reports deep equality. Nested Documents are compared key by key
// including key order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindDocument:
		return v.doc.Equal(o.doc)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// clone deep-copies nested Documents.
func (v Value) clone() Value {
	switch v.kind {
	case KindDocument:
		return Object(v.doc.Clone())
	case KindList:
		docs := make([]*Document, len(v.list))
		for i, d := range v.list {
			docs[i] = d.Clone()
		}
		return List(docs...)
	default:
		return v
	}
}

// String renders the value as JSON text.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(b)
}
