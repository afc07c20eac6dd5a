package sqlstore

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/jsonq/lib/document"
)

// Rows hold a tagged encoding instead of plain JSON. Plain JSON cannot tell a
// key with several Document values from a key holding one list, and it drops
// keys with zero values.

type entry struct {
	Key    string  `json:"k"`
	Values []value `json:"v"`
}

type value struct {
	Kind   document.Kind `json:"t"`
	Bool   bool          `json:"b,omitempty"`
	Int    int64         `json:"i,omitempty"`
	Double float64       `json:"f,omitempty"`
	String string        `json:"s,omitempty"`
	Doc    []entry       `json:"d,omitempty"`
	List   [][]entry     `json:"l,omitempty"`
}

func encodeDocument(doc *document.Document) ([]byte, error) {
	return json.Marshal(toEntries(doc))
}

func decodeDocument(body []byte) (*document.Document, error) {
	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fromEntries(entries)
}

func toEntries(doc *document.Document) []entry {
	keys := doc.Keys()
	entries := make([]entry, 0, len(keys))
	for _, key := range keys {
		values := doc.Get(key)
		e := entry{Key: key, Values: make([]value, 0, len(values))}
		for _, v := range values {
			e.Values = append(e.Values, toValue(v))
		}
		entries = append(entries, e)
	}
	return entries
}

func toValue(v document.Value) value {
	out := value{Kind: v.Kind()}
	switch v.Kind() {
	case document.KindBool:
		out.Bool, _ = v.AsBool()
	case document.KindInt:
		out.Int, _ = v.AsInt()
	case document.KindDouble:
		out.Double, _ = v.AsDouble()
	case document.KindString:
		out.String, _ = v.AsString()
	case document.KindDocument:
		doc, _ := v.AsObject()
		out.Doc = toEntries(doc)
	case document.KindList:
		docs, _ := v.AsList()
		out.List = make([][]entry, 0, len(docs))
		for _, d := range docs {
			out.List = append(out.List, toEntries(d))
		}
	}
	return out
}

func fromEntries(entries []entry) (*document.Document, error) {
	doc := document.New()
	for _, e := range entries {
		values := make([]document.Value, 0, len(e.Values))
		for _, v := range e.Values {
			decoded, err := fromValue(v)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", e.Key, err)
			}
			values = append(values, decoded)
		}
		doc.PutList(e.Key, values)
	}
	return doc, nil
}

func fromValue(v value) (document.Value, error) {
	switch v.Kind {
	case document.KindNull:
		return document.Null(), nil
	case document.KindBool:
		return document.Bool(v.Bool), nil
	case document.KindInt:
		return document.Int(v.Int), nil
	case document.KindDouble:
		return document.Double(v.Double), nil
	case document.KindString:
		return document.String(v.String), nil
	case document.KindDocument:
		doc, err := fromEntries(v.Doc)
		if err != nil {
			return document.Value{}, err
		}
		return document.Object(doc), nil
	case document.KindList:
		docs := make([]*document.Document, 0, len(v.List))
		for _, entries := range v.List {
			doc, err := fromEntries(entries)
			if err != nil {
				return document.Value{}, err
			}
			docs = append(docs, doc)
		}
		return document.List(docs...), nil
	default:
		return document.Value{}, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}
