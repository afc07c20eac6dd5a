package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Parse decodes a JSON object into a new Document.
func Parse(data []byte) (*Document, error) {
	d := New()
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseValue decodes any JSON value (object, scalar, array of objects) into a Value.
func ParseValue(data []byte) (Value, error) {
	dec := newDecoder(bytes.NewReader(data))
	v, multi, err := decodeValue(dec)
	if err != nil {
		return Null(), err
	}
	if multi != nil {
		if len(multi) > 0 {
			return Null(), fmt.Errorf("%w: top-level array must contain only objects", ErrInvalidArgument)
		}
		v = List()
	}
	if err := expectEOF(dec); err != nil {
		return Null(), err
	}
	return v, nil
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// MarshalJSON implements json.Marshaler. Keys keep their insertion order; a key
// with exactly one value encodes as that value, any other count as an array.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) encode(buf *bytes.Buffer) error {
	if d == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	for i, key := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, key)
		buf.WriteByte(':')

		values := d.Get(key)
		if len(values) == 1 {
			if err := values[0].encode(buf); err != nil {
				return err
			}
			continue
		}
		buf.WriteByte('[')
		for j, v := range values {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := v.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindDouble:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("%w: %v cannot be encoded as JSON", ErrInvalidArgument, v.f)
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		buf.WriteString(s)
		// keep doubles recognizable as doubles after a round trip
		if v.f == math.Trunc(v.f) && !bytes.ContainsAny([]byte(s), ".eE") {
			buf.WriteString(".0")
		}
	case KindString:
		writeString(buf, v.s)
	case KindDocument:
		return v.doc.encode(buf)
	case KindList:
		buf.WriteByte('[')
		for i, d := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := d.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("%w: unsupported value kind %s", ErrInvalidArgument, v.kind)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// UnmarshalJSON implements json.Unmarshaler. The receiver is cleared first.
//
// Arrays whose elements are all objects decode to a single list value; any
// other array decodes to a multi-valued key. Numbers without a fraction or
// exponent decode as integers, all others as doubles.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := newDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrInvalidArgument)
	}
	d.Clear()
	if err := decodeObject(dec, d); err != nil {
		return err
	}
	return expectEOF(dec)
}

func newDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON value", ErrInvalidArgument)
	}
	return nil
}

// decodeObject reads key/value pairs until the closing brace. The opening
// brace has already been consumed.
func decodeObject(dec *json.Decoder, d *Document) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: expected object key, got %v", ErrInvalidArgument, tok)
		}
		v, multi, err := decodeValue(dec)
		if err != nil {
			return err
		}
		if multi != nil {
			d.PutList(key, multi)
		} else {
			d.Put(key, v)
		}
	}
	_, err := dec.Token() // '}'
	return err
}

// decodeValue reads one JSON value. Arrays that are not lists of objects are
// returned as multi (one Value per element).
func decodeValue(dec *json.Decoder) (v Value, multi []Value, err error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), nil, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil, nil
	case bool:
		return Bool(t), nil, nil
	case string:
		return String(t), nil, nil
	case json.Number:
		v, err := decodeNumber(t)
		return v, nil, err
	case json.Delim:
		switch t {
		case '{':
			child := New()
			if err := decodeObject(dec, child); err != nil {
				return Null(), nil, err
			}
			return Object(child), nil, nil
		case '[':
			return decodeArray(dec)
		}
	}
	return Null(), nil, fmt.Errorf("%w: unexpected token %v", ErrInvalidArgument, tok)
}

func decodeArray(dec *json.Decoder) (Value, []Value, error) {
	elements := []Value{}
	allObjects := true
	for dec.More() {
		v, multi, err := decodeValue(dec)
		if err != nil {
			return Null(), nil, err
		}
		if multi != nil {
			return Null(), nil, fmt.Errorf("%w: nested arrays are not supported", ErrInvalidArgument)
		}
		if v.kind == KindList {
			return Null(), nil, fmt.Errorf("%w: nested arrays are not supported", ErrInvalidArgument)
		}
		if v.kind != KindDocument {
			allObjects = false
		}
		elements = append(elements, v)
	}
	if _, err := dec.Token(); err != nil { // ']'
		return Null(), nil, err
	}
	if allObjects && len(elements) > 0 {
		docs := make([]*Document, len(elements))
		for i, e := range elements {
			docs[i] = e.doc
		}
		return List(docs...), nil, nil
	}
	return Null(), elements, nil
}

func decodeNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Null(), fmt.Errorf("%w: invalid number %s", ErrInvalidArgument, n)
	}
	return Double(f), nil
}
