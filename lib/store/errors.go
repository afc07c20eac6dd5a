package store

import "github.com/ValentinKolb/jsonq/lib/document"

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

const (
	ErrStoreExists    = "err.store.exists"     // a store with this name is already provisioned
	ErrInvalidInput   = "err.invalid_input"    // the request payload is unusable
	ErrNoSuchProvider = "err.no_such_provider" // no factory registered under the provider name
	ErrInvalidStore   = "err.invalid.store"    // no store provisioned under the name
	ErrNotFound       = "err.not_found"        // no document stored under the id
	ErrInternal       = "err.internal"         // the backend failed
)

// Error Document keys.
const (
	ErrorCode    = "code"
	ErrorMessage = "message"
	ErrorArgs    = "args"
)

// --------------------------------------------------------------------------
// Error Documents
// --------------------------------------------------------------------------

// NewError creates an error Document {code, message, args}. The args key is
// only present when args are given.
func NewError(code, message string, args ...string) *document.Document {
	e := document.New()
	e.PutString(ErrorCode, code)
	e.PutString(ErrorMessage, message)
	if len(args) > 0 {
		values := make([]document.Value, len(args))
		for i, a := range args {
			values[i] = document.String(a)
		}
		e.PutList(ErrorArgs, values)
	}
	return e
}

// ErrorCodeOf returns the code of an error Document ("" if there is none).
func ErrorCodeOf(e *document.Document) string {
	if e == nil {
		return ""
	}
	code, _ := e.GetString(ErrorCode)
	return code
}
