// Package document provides the multi-valued, JSON-like Document used for every
// request, response, schema and stored record in jsonq.
//
// A Document is an ordered mapping from string keys to one or more typed values.
// Each value is a Value, a closed tagged variant over:
//
//   - null
//   - boolean
//   - integer (int64)
//   - double (float64)
//   - string
//   - Document (nested object)
//   - list of Documents
//
// Mutation:
//
//   - Add appends a value to the key's value list (creating it if needed)
//   - Put replaces the key's value list with exactly one value
//   - PutList replaces the key's value list with an arbitrary list (multi-valued fields)
//
// Reading:
//
//   - Get always returns a list (empty when absent) that the caller may not use to mutate the Document
//   - GetSingle returns the sole value, a null Value when absent, and ErrInvalidState for multiple values
//   - Typed accessors (GetString, GetInt, GetDouble, GetBool, GetObject, GetList) fail with
//     ErrInvalidArgument if the stored value has a different kind
//
// Nested Documents are never cloned on Add/Put. A Document handed to a store must not be
// mutated afterwards; use Clone when an independent copy is needed.
//
// Documents encode to and decode from JSON (see MarshalJSON / UnmarshalJSON). A key with
// more than one value encodes as a JSON array.
package document
