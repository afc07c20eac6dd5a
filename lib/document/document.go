package document

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrInvalidArgument is returned when a value of the wrong kind is requested.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState is returned when a single value is requested from a multi-valued key.
	ErrInvalidState = errors.New("invalid state")
)

// Document is an ordered, multi-valued mapping from string keys to Values.
// Keys keep the order of their first insertion.
//
// Thread-safety: All methods are thread-safe. Nested Documents are shared, not
// copied, so their own locks protect them independently.
type Document struct {
	mu     sync.RWMutex
	keys   []string
	values map[string][]Value
}

// New creates an empty Document.
func New() *Document {
	return &Document{values: make(map[string][]Value)}
}

// --------------------------------------------------------------------------
// Mutation
// --------------------------------------------------------------------------

// Add appends value to the list stored under key.
func (d *Document) Add(key string, value Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch(key)
	d.values[key] = append(d.values[key], value)
}

// Put replaces the list stored under key with the single value.
func (d *Document) Put(key string, value Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch(key)
	d.values[key] = []Value{value}
}

// PutList replaces the list stored under key with values. An empty list keeps
// the key present with zero values.
func (d *Document) PutList(key string, values []Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touch(key)
	d.values[key] = slices.Clone(values)
	if d.values[key] == nil {
		d.values[key] = []Value{}
	}
}

// Remove deletes key and all its values.
func (d *Document) Remove(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
}

// Clear removes every key.
func (d *Document) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = nil
	d.values = make(map[string][]Value)
}

// touch registers key in the key order. Must be called with the write lock held.
func (d *Document) touch(key string) {
	if d.values == nil {
		d.values = make(map[string][]Value)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
}

// Convenience setters

// PutString stores a single string under key.
func (d *Document) PutString(key, value string) { d.Put(key, String(value)) }

// PutInt stores a single integer under key.
func (d *Document) PutInt(key string, value int64) { d.Put(key, Int(value)) }

// PutDouble stores a single double under key.
func (d *Document) PutDouble(key string, value float64) { d.Put(key, Double(value)) }

// PutBool stores a single boolean under key.
func (d *Document) PutBool(key string, value bool) { d.Put(key, Bool(value)) }

// PutObject stores a single nested Document under key (null when value is nil).
func (d *Document) PutObject(key string, value *Document) { d.Put(key, Object(value)) }

// PutNull stores an explicit null under key.
func (d *Document) PutNull(key string) { d.Put(key, Null()) }

// --------------------------------------------------------------------------
// Reading
// --------------------------------------------------------------------------

// Has reports whether key is present, even with a null or empty value list.
func (d *Document) Has(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.keys)
}

// Len returns the number of keys.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.keys)
}

// Get returns the values stored under key, or an empty list if the key is absent.
// The returned slice is a copy; changing it does not change the Document.
func (d *Document) Get(key string) []Value {
	d.mu.RLock()
	defer d.mu.RUnlock()
	values, ok := d.values[key]
	if !ok {
		return []Value{}
	}
	return slices.Clone(values)
}

// GetSingle returns the sole value stored under key. An absent key (or an empty
// list) yields the null Value. More than one value fails with ErrInvalidState.
func (d *Document) GetSingle(key string) (Value, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	values := d.values[key]
	switch len(values) {
	case 0:
		return Null(), nil
	case 1:
		return values[0], nil
	default:
		return Null(), fmt.Errorf("%w: multiple values for %q", ErrInvalidState, key)
	}
}

// typed fetches the single value under key and checks its kind. ok is false
// when the value is absent or null.
func (d *Document) typed(key string, kind Kind) (v Value, ok bool, err error) {
	v, err = d.GetSingle(key)
	if err != nil || v.IsNull() {
		return v, false, err
	}
	if v.kind != kind {
		return v, false, fmt.Errorf("%w: %q holds a %s, not a %s", ErrInvalidArgument, key, v.kind, kind)
	}
	return v, true, nil
}

// GetString returns the string under key ("" when absent or null).
func (d *Document) GetString(key string) (string, error) {
	v, _, err := d.typed(key, KindString)
	return v.s, err
}

// GetInt returns the integer under key (0 when absent or null).
func (d *Document) GetInt(key string) (int64, error) {
	v, _, err := d.typed(key, KindInt)
	return v.i, err
}

// GetDouble returns the double under key (0.0 when absent or null).
func (d *Document) GetDouble(key string) (float64, error) {
	v, _, err := d.typed(key, KindDouble)
	return v.f, err
}

// GetBool returns the boolean under key (false when absent or null).
func (d *Document) GetBool(key string) (bool, error) {
	v, _, err := d.typed(key, KindBool)
	return v.b, err
}

// GetObject returns the nested Document under key (nil when absent or null).
func (d *Document) GetObject(key string) (*Document, error) {
	v, _, err := d.typed(key, KindDocument)
	return v.doc, err
}

// GetList returns the Document list under key (nil when absent or null).
func (d *Document) GetList(key string) ([]*Document, error) {
	v, _, err := d.typed(key, KindList)
	return v.list, err
}

// --------------------------------------------------------------------------
// Copy and comparison
// --------------------------------------------------------------------------

// Clone returns a deep copy of the Document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	c := &Document{
		keys:   slices.Clone(d.keys),
		values: make(map[string][]Value, len(d.values)),
	}
	for k, values := range d.values {
		copied := make([]Value, len(values))
		for i, v := range values {
			copied[i] = v.clone()
		}
		c.values[k] = copied
	}
	return c
}

// Equal reports whether both Documents hold the same keys in the same order
// with equal values. Two nil Documents are equal.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d == o {
		return true
	}
	keys := d.Keys()
	if !slices.Equal(keys, o.Keys()) {
		return false
	}
	for _, k := range keys {
		a, b := d.Get(k), o.Get(k)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
	}
	return true
}

// String renders the Document as JSON text.
func (d *Document) String() string {
	b, err := d.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<document: %v>", err)
	}
	return string(b)
}
