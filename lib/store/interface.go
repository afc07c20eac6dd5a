package store

import (
	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/future"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Store is a backend capable of save/fetch/delete/list over Documents keyed by id.
// Every method receives the full request Document and resolves its Future with
// the operation result, or fails it with an error Document (see NewError).
type Store interface {
	// IDField returns the name of the payload field holding the document id.
	IDField() string
	// Save stores the payload Document under its id, generating an id (and
	// setting it on the payload) if the id field is absent. Resolves with the id.
	Save(request *document.Document) *future.Future[string, *document.Document]
	// Fetch resolves with the Document stored under the id given as payload.
	// An unknown id fails with ErrNotFound.
	Fetch(request *document.Document) *future.Future[*document.Document, *document.Document]
	// Delete removes the Document stored under the id given as payload.
	// Deleting an unknown id succeeds.
	Delete(request *document.Document) *future.Future[struct{}, *document.Document]
	// List resolves with every stored Document in insertion order.
	List(request *document.Document) *future.Future[[]*document.Document, *document.Document]
}

// Factory creates Stores for one provider.
type Factory interface {
	// Create builds a new Store from the provisioning schema.
	Create(schema *document.Document) *future.Future[Store, *document.Document]
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(schema *document.Document) *future.Future[Store, *document.Document]

// Create calls f(schema).
func (f FactoryFunc) Create(schema *document.Document) *future.Future[Store, *document.Document] {
	return f(schema)
}

// --------------------------------------------------------------------------
// Keys
// --------------------------------------------------------------------------

// Request keys.
const (
	RequestID      = "id"
	RequestOp      = "op"
	RequestStore   = "store"
	RequestPayload = "payload"
	RequestTxnID   = "txn_id"
)

// Response keys.
const (
	ResponseRequestID = "request_id"
	ResponseSuccess   = "success"
	ResponsePayload   = "payload"
	ResponseTxnID     = "txn_id"
)

// Schema keys.
const (
	SchemaProvider = "provider"
	SchemaIDField  = "id_field"

	// DefaultIDField is used when the schema does not name an id field.
	DefaultIDField = "id"
)

// IDFieldFromSchema returns the id field named by the schema, or DefaultIDField.
func IDFieldFromSchema(schema *document.Document) string {
	if schema == nil {
		return DefaultIDField
	}
	if idField, err := schema.GetString(SchemaIDField); err == nil && idField != "" {
		return idField
	}
	return DefaultIDField
}
