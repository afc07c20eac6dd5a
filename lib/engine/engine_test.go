package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/jsonq/lib/common"
	"github.com/ValentinKolb/jsonq/lib/db"
	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/future"
	"github.com/ValentinKolb/jsonq/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, config common.EngineConfig) *Engine {
	t.Helper()
	e, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func parse(t *testing.T, s string) *document.Document {
	t.Helper()
	d, err := document.Parse([]byte(s))
	require.NoError(t, err)
	return d
}

func exec(t *testing.T, e *Engine, request string) (*document.Document, bool) {
	t.Helper()
	f, err := e.Exec(parse(t, request))
	require.NoError(t, err)
	return await(t, f)
}

func await(t *testing.T, f *db.Response) (*document.Document, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, failure, ok, err := f.Await(ctx)
	require.NoError(t, err)
	if ok {
		return result, true
	}
	return failure, false
}

func TestEndToEnd(t *testing.T) {
	e := newEngine(t, common.DefaultEngineConfig())

	response, ok := exec(t, e, `{"id":"t1","op":"provision","store":"users","payload":{"provider":"mem"}}`)
	require.True(t, ok)
	assert.Equal(t, `{"request_id":"t1","success":true,"payload":null}`, response.String())

	response, ok = exec(t, e, `{"id":"t2","op":"save","store":"users","payload":{"name":"Alice"}}`)
	require.True(t, ok)
	requestID, _ := response.GetString(store.ResponseRequestID)
	assert.Equal(t, "t2", requestID)
	id, err := response.GetString(store.ResponsePayload)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	fetch := document.New()
	fetch.PutString(store.RequestID, "t3")
	fetch.PutString(store.RequestOp, "fetch")
	fetch.PutString(store.RequestStore, "users")
	fetch.PutString(store.RequestPayload, id)
	f, err := e.Exec(fetch)
	require.NoError(t, err)
	response, ok = await(t, f)
	require.True(t, ok)

	fetched, err := response.GetObject(store.ResponsePayload)
	require.NoError(t, err)
	expected := document.New()
	expected.PutString("name", "Alice")
	expected.PutString("id", id)
	assert.True(t, expected.Equal(fetched), "got %s", fetched)
}

func TestOperationalFailures(t *testing.T) {
	e := newEngine(t, common.DefaultEngineConfig())

	exec(t, e, `{"id":"p1","op":"provision","store":"users","payload":{"provider":"mem"}}`)

	cases := map[string]string{
		`{"id":"p2","op":"provision","store":"users","payload":{"provider":"mem"}}`: store.ErrStoreExists,
		`{"id":"p3","op":"provision","store":"other","payload":{"provider":"nope"}}`: store.ErrNoSuchProvider,
		`{"id":"s1","op":"save","store":"ghost","payload":{}}`:                       store.ErrInvalidStore,
		`{"id":"f1","op":"fetch","store":"users","payload":"missing"}`:               store.ErrNotFound,
		`{"id":"s2","op":"save","store":"users","payload":null}`:                     store.ErrInvalidInput,
	}
	for request, code := range cases {
		response, ok := exec(t, e, request)
		require.False(t, ok, request)
		success, _ := response.GetBool(store.ResponseSuccess)
		assert.False(t, success)
		errDoc, err := response.GetObject(store.ResponsePayload)
		require.NoError(t, err)
		assert.Equal(t, code, store.ErrorCodeOf(errDoc), request)
	}

	response, ok := exec(t, e, `{"id":"d1","op":"delete","store":"users","payload":"missing"}`)
	require.True(t, ok, "delete is idempotent")
	payload, _ := response.GetSingle(store.ResponsePayload)
	assert.True(t, payload.IsNull())
}

func TestValidation(t *testing.T) {
	e := newEngine(t, common.DefaultEngineConfig())

	cases := []struct {
		request string
		message string
	}{
		{`{}`, "id is required"},
		{`{"id":null,"op":"save","store":"s","payload":{}}`, "id is required"},
		{`{"id":"1","store":"s","payload":{}}`, "op is required"},
		{`{"id":"1","op":"upsert","store":"s","payload":{}}`, "No operation upsert"},
		{`{"id":"1","op":7,"store":"s","payload":{}}`, "No operation 7"},
		{`{"id":"1","op":"save","payload":{}}`, "store is required"},
		{`{"id":7,"op":"save","store":"s","payload":{}}`, "id must be a string"},
		{`{"id":"1","op":"provision","store":42,"payload":{"provider":"mem"}}`, "store must be a string"},
		{`{"id":"1","op":"save","store":{"x":1},"payload":{}}`, "store must be a string"},
		{`{"id":"1","op":"save","store":"s"}`, "payload is required"},
		// order: id is checked before op
		{`{"op":"upsert"}`, "id is required"},
		{`{"id":"1","op":"upsert"}`, "No operation upsert"},
	}
	for _, c := range cases {
		f, err := e.Exec(parse(t, c.request))
		assert.Nil(t, f)
		require.Error(t, err, c.request)
		assert.Equal(t, c.message, err.Error(), c.request)
		assert.True(t, errors.Is(err, ErrInvalidArgument), c.request)

		var validation *ValidationError
		assert.True(t, errors.As(err, &validation))
	}

	_, err := e.Exec(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, e.Database().StoreNames(), "rejected requests must not provision anything")
}

func TestNullPayloadIsAccepted(t *testing.T) {
	e := newEngine(t, common.DefaultEngineConfig())
	exec(t, e, `{"id":"p","op":"provision","store":"users","payload":{"provider":"mem"}}`)

	response, ok := exec(t, e, `{"id":"l","op":"LIST","store":"users","payload":null}`)
	require.True(t, ok)
	docs, err := response.GetList(store.ResponsePayload)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestParseOp(t *testing.T) {
	for _, name := range []string{"provision", "SAVE", "Fetch", "delete", "list"} {
		op, err := ParseOp(name)
		require.NoError(t, err, name)
		assert.NotEqual(t, "unknown", op.String())
	}
	op, err := ParseOp("Save")
	require.NoError(t, err)
	assert.Equal(t, OpSave, op)
	assert.Equal(t, "save", op.String())

	_, err = ParseOp("merge")
	assert.EqualError(t, err, "No operation merge")
	assert.Equal(t, "unknown", Op(99).String())
}

func TestSQLiteProvider(t *testing.T) {
	config := common.DefaultEngineConfig()
	config.Providers["sql"] = common.ProviderSQLite
	e := newEngine(t, config)

	_, ok := exec(t, e, `{"id":"p","op":"provision","store":"docs","payload":{"provider":"sql","id_field":"key"}}`)
	require.True(t, ok)

	response, ok := exec(t, e, `{"id":"s","op":"save","store":"docs","payload":{"key":"k1","n":1.5}}`)
	require.True(t, ok)
	id, _ := response.GetString(store.ResponsePayload)
	assert.Equal(t, "k1", id)

	response, ok = exec(t, e, `{"id":"f","op":"fetch","store":"docs","payload":"k1"}`)
	require.True(t, ok)
	fetched, _ := response.GetObject(store.ResponsePayload)
	assert.Equal(t, `{"key":"k1","n":1.5}`, fetched.String())
}

func TestCustomProviderAndTxnID(t *testing.T) {
	e := newEngine(t, common.EngineConfig{LogLevel: "info"})

	var seenSchema *document.Document
	e.RegisterProvider("custom", store.FactoryFunc(func(schema *document.Document) *future.Future[store.Store, *document.Document] {
		seenSchema = schema
		return future.Rejected[store.Store, *document.Document](e.Executor(), store.NewError(store.ErrInternal, "not today"))
	}))

	response, ok := exec(t, e, `{"id":"p","op":"provision","store":"x","payload":{"provider":"custom","size":3},"txn_id":"tx-1"}`)
	require.False(t, ok)
	txnID, _ := response.GetString(store.ResponseTxnID)
	assert.Equal(t, "tx-1", txnID)
	require.NotNil(t, seenSchema)
	size, _ := seenSchema.GetInt("size")
	assert.Equal(t, int64(3), size)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(common.EngineConfig{LogLevel: "chatty"})
	assert.Error(t, err)

	_, err = New(common.EngineConfig{LogLevel: "info", Providers: map[string]common.ProviderKind{"x": "redis"}})
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	config := common.DefaultEngineConfig()
	config.Providers["sql"] = common.ProviderSQLite
	e, err := New(config)
	require.NoError(t, err)

	exec(t, e, `{"id":"p1","op":"provision","store":"a","payload":{"provider":"sql"}}`)
	exec(t, e, `{"id":"p2","op":"provision","store":"b","payload":{"provider":"mem"}}`)
	assert.Equal(t, []string{"a", "b"}, e.Database().StoreNames())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Empty(t, e.Database().StoreNames())
	assert.False(t, e.Scheduler().Submit(func() {}))

	f, err := e.Exec(parse(t, `{"id":"l","op":"list","store":"a","payload":null}`))
	assert.Nil(t, f)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, errors.Is(err, ErrInvalidArgument))
}
