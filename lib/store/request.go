package store

import (
	"github.com/ValentinKolb/jsonq/lib/document"
)

// --------------------------------------------------------------------------
// Payload helpers shared by Store implementations
// --------------------------------------------------------------------------

// PayloadDocument returns the payload of a save request. A missing, null or
// non-object payload yields an ErrInvalidInput error Document.
func PayloadDocument(request *document.Document) (*document.Document, *document.Document) {
	payload, err := request.GetObject(RequestPayload)
	if err != nil || payload == nil {
		return nil, NewError(ErrInvalidInput, "payload must be a document")
	}
	return payload, nil
}

// PayloadID returns the document id carried as the payload of a fetch or
// delete request. The payload must be a non-empty string.
func PayloadID(request *document.Document) (string, *document.Document) {
	id, err := request.GetString(RequestPayload)
	if err != nil || id == "" {
		return "", NewError(ErrInvalidInput, "payload must be a document id")
	}
	return id, nil
}

// DocumentID returns the id stored in payload under idField. ok is false when
// the field is absent or null. A non-string id yields an ErrInvalidInput error
// Document.
func DocumentID(payload *document.Document, idField string) (id string, ok bool, errDoc *document.Document) {
	v, err := payload.GetSingle(idField)
	if err != nil {
		return "", false, NewError(ErrInvalidInput, "id field {0} holds multiple values", idField)
	}
	if v.IsNull() {
		return "", false, nil
	}
	id, isString := v.AsString()
	if !isString || id == "" {
		return "", false, NewError(ErrInvalidInput, "id field {0} must be a non-empty string", idField)
	}
	return id, true, nil
}
