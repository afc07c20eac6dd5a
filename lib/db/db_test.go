package db

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/future"
	"github.com/ValentinKolb/jsonq/lib/scheduler"
	"github.com/ValentinKolb/jsonq/lib/store"
	"github.com/ValentinKolb/jsonq/lib/store/mstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func newDatabase(t *testing.T) (*Database, *scheduler.Scheduler) {
	t.Helper()
	sched := scheduler.New()
	t.Cleanup(sched.Close)
	d := New(sched)
	d.RegisterProvider("mem", mstore.NewFactory(sched))
	return d, sched
}

func request(id, op, storeName string, payload document.Value) *document.Document {
	r := document.New()
	r.PutString(store.RequestID, id)
	r.PutString(store.RequestOp, op)
	r.PutString(store.RequestStore, storeName)
	r.Put(store.RequestPayload, payload)
	return r
}

func schema(provider string) document.Value {
	s := document.New()
	s.PutString(store.SchemaProvider, provider)
	return document.Object(s)
}

// awaitResponse waits for a command and returns its envelope and whether it succeeded.
func awaitResponse(t *testing.T, f *Response) (*document.Document, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, failure, ok, err := f.Await(ctx)
	require.NoError(t, err, "command did not finish")
	if ok {
		return result, true
	}
	return failure, false
}

func mustSucceed(t *testing.T, f *Response) document.Value {
	t.Helper()
	response, ok := awaitResponse(t, f)
	require.True(t, ok, "unexpected failure: %s", response)
	success, err := response.GetBool(store.ResponseSuccess)
	require.NoError(t, err)
	require.True(t, success)
	payload, err := response.GetSingle(store.ResponsePayload)
	require.NoError(t, err)
	return payload
}

// mustFail waits for a failing command and returns the error code of its payload.
func mustFail(t *testing.T, f *Response) string {
	t.Helper()
	response, ok := awaitResponse(t, f)
	require.False(t, ok, "unexpected success: %s", response)
	success, err := response.GetBool(store.ResponseSuccess)
	require.NoError(t, err)
	require.False(t, success)
	errDoc, err := response.GetObject(store.ResponsePayload)
	require.NoError(t, err)
	return store.ErrorCodeOf(errDoc)
}

// pendingFactory hands every Create future to the test instead of completing it.
type pendingFactory struct {
	created chan *future.Future[store.Store, *document.Document]
	exec    future.Executor
}

func (p *pendingFactory) Create(*document.Document) *future.Future[store.Store, *document.Document] {
	f := future.New[store.Store, *document.Document](p.exec)
	p.created <- f
	return f
}

type closingStore struct {
	store.Store
	name   string
	closed *atomic.Int32
}

func (c closingStore) Close() error {
	c.closed.Add(1)
	return nil
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func TestProvisionAndCommands(t *testing.T) {
	d, _ := newDatabase(t)

	response, ok := awaitResponse(t, d.Provision(request("t1", OpProvision, "users", schema("mem"))))
	require.True(t, ok)
	requestID, _ := response.GetString(store.ResponseRequestID)
	assert.Equal(t, "t1", requestID)
	payload, _ := response.GetSingle(store.ResponsePayload)
	assert.True(t, payload.IsNull())
	assert.Equal(t, []string{store.ResponseRequestID, store.ResponseSuccess, store.ResponsePayload}, response.Keys())

	alice := document.New()
	alice.PutString("name", "Alice")
	idValue := mustSucceed(t, d.Save(request("t2", OpSave, "users", document.Object(alice))))
	id, ok := idValue.AsString()
	require.True(t, ok)
	require.NotEmpty(t, id)

	fetched, ok := mustSucceed(t, d.Fetch(request("t3", OpFetch, "users", document.String(id)))).AsObject()
	require.True(t, ok)
	expected := document.New()
	expected.PutString("name", "Alice")
	expected.PutString("id", id)
	assert.True(t, expected.Equal(fetched), "got %s", fetched)

	docs, ok := mustSucceed(t, d.List(request("t4", OpList, "users", document.Null()))).AsList()
	require.True(t, ok)
	assert.Len(t, docs, 1)

	assert.True(t, mustSucceed(t, d.Delete(request("t5", OpDelete, "users", document.String(id)))).IsNull())
	assert.Equal(t, store.ErrNotFound, mustFail(t, d.Fetch(request("t6", OpFetch, "users", document.String(id)))))

	docs, _ = mustSucceed(t, d.List(request("t7", OpList, "users", document.Null()))).AsList()
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestProvisionTwice(t *testing.T) {
	d, _ := newDatabase(t)

	mustSucceed(t, d.Provision(request("p1", OpProvision, "users", schema("mem"))))
	first, ok := d.Store("users")
	require.True(t, ok)

	assert.Equal(t, store.ErrStoreExists, mustFail(t, d.Provision(request("p2", OpProvision, "users", schema("mem")))))

	second, ok := d.Store("users")
	require.True(t, ok)
	assert.Same(t, first, second, "the registry must not change")
	assert.Equal(t, []string{"users"}, d.StoreNames())
}

func TestProvisionRace(t *testing.T) {
	d, sched := newDatabase(t)
	pending := &pendingFactory{created: make(chan *future.Future[store.Store, *document.Document], 2), exec: sched}
	d.RegisterProvider("slow", pending)

	r1 := d.Provision(request("p1", OpProvision, "users", schema("slow")))
	r2 := d.Provision(request("p2", OpProvision, "users", schema("slow")))

	// both commands passed the existence check before any store was created
	f1, f2 := <-pending.created, <-pending.created

	var closed atomic.Int32
	s1 := closingStore{name: "first", closed: &closed}
	s2 := closingStore{name: "second", closed: &closed}
	f1.Complete(s1)
	f2.Complete(s2)

	mustSucceed(t, r1)
	assert.Equal(t, store.ErrStoreExists, mustFail(t, r2))
	assert.Equal(t, int32(1), closed.Load(), "the losing store is closed")

	registered, ok := d.Store("users")
	require.True(t, ok)
	assert.Equal(t, s1, registered)
}

func TestProvisionErrors(t *testing.T) {
	d, sched := newDatabase(t)

	assert.Equal(t, store.ErrNoSuchProvider, mustFail(t, d.Provision(request("p1", OpProvision, "users", schema("nope")))))
	assert.Equal(t, store.ErrInvalidInput, mustFail(t, d.Provision(request("p2", OpProvision, "users", document.Object(document.New())))))
	assert.Equal(t, store.ErrInvalidInput, mustFail(t, d.Provision(request("p3", OpProvision, "users", document.Null()))))
	assert.Equal(t, store.ErrInvalidInput, mustFail(t, d.Provision(request("p4", OpProvision, "users", document.String("mem")))))

	d.RegisterProvider("broken", store.FactoryFunc(func(*document.Document) *future.Future[store.Store, *document.Document] {
		return future.Rejected[store.Store, *document.Document](sched, store.NewError("err.custom", "cannot create {0}", "users"))
	}))
	response, ok := awaitResponse(t, d.Provision(request("p5", OpProvision, "users", schema("broken"))))
	require.False(t, ok)
	errDoc, _ := response.GetObject(store.ResponsePayload)
	assert.Equal(t, "err.custom", store.ErrorCodeOf(errDoc))
	assert.Equal(t, []document.Value{document.String("users")}, errDoc.Get(store.ErrorArgs))

	assert.Empty(t, d.StoreNames())
}

func TestUnknownStore(t *testing.T) {
	d, _ := newDatabase(t)

	assert.Equal(t, store.ErrInvalidStore, mustFail(t, d.Save(request("s", OpSave, "ghost", document.Object(document.New())))))
	assert.Equal(t, store.ErrInvalidStore, mustFail(t, d.Fetch(request("f", OpFetch, "ghost", document.String("x")))))
	assert.Equal(t, store.ErrInvalidStore, mustFail(t, d.Delete(request("d", OpDelete, "ghost", document.String("x")))))
	assert.Equal(t, store.ErrInvalidStore, mustFail(t, d.List(request("l", OpList, "ghost", document.Null()))))
}

func TestNonStringStoreName(t *testing.T) {
	d, _ := newDatabase(t)

	r := request("p", OpProvision, "", schema("mem"))
	r.PutInt(store.RequestStore, 42)
	assert.Equal(t, store.ErrInvalidInput, mustFail(t, d.Provision(r)))
	assert.Empty(t, d.StoreNames())

	mustSucceed(t, d.Provision(request("p2", OpProvision, "", schema("mem"))))
	s := request("s", OpSave, "", document.Object(document.New()))
	s.PutObject(store.RequestStore, document.New())
	assert.Equal(t, store.ErrInvalidInput, mustFail(t, d.Save(s)))

	docs, _ := mustSucceed(t, d.List(request("l", OpList, "", document.Null()))).AsList()
	assert.Empty(t, docs, "a non-string name must not address the store named \"\"")
}

func TestProviderLastWins(t *testing.T) {
	d, sched := newDatabase(t)
	pending := &pendingFactory{created: make(chan *future.Future[store.Store, *document.Document], 1), exec: sched}
	d.RegisterProvider("mem", pending)

	r := d.Provision(request("p", OpProvision, "users", schema("mem")))
	f := <-pending.created
	f.Fail(store.NewError(store.ErrInternal, "replaced provider used"))
	assert.Equal(t, store.ErrInternal, mustFail(t, r))
}

func TestTxnIDEcho(t *testing.T) {
	d, _ := newDatabase(t)

	r := request("p", OpProvision, "users", schema("mem"))
	r.PutString(store.RequestTxnID, "tx-9")
	response, ok := awaitResponse(t, d.Provision(r))
	require.True(t, ok)
	txnID, err := response.GetString(store.ResponseTxnID)
	require.NoError(t, err)
	assert.Equal(t, "tx-9", txnID)

	response, _ = awaitResponse(t, d.List(request("l", OpList, "users", document.Null())))
	assert.False(t, response.Has(store.ResponseTxnID))
}

func TestStoreNamesAndClose(t *testing.T) {
	d, sched := newDatabase(t)

	var closed atomic.Int32
	d.RegisterProvider("closing", store.FactoryFunc(func(*document.Document) *future.Future[store.Store, *document.Document] {
		return future.Completed[store.Store, *document.Document](sched, closingStore{closed: &closed})
	}))

	mustSucceed(t, d.Provision(request("1", OpProvision, "b", schema("closing"))))
	mustSucceed(t, d.Provision(request("2", OpProvision, "a", schema("mem"))))
	mustSucceed(t, d.Provision(request("3", OpProvision, "c", schema("closing"))))
	assert.Equal(t, []string{"a", "b", "c"}, d.StoreNames())

	require.NoError(t, d.Close())
	assert.Equal(t, int32(2), closed.Load())
	assert.Empty(t, d.StoreNames())
}

func TestMetrics(t *testing.T) {
	d, _ := newDatabase(t)

	mustSucceed(t, d.Provision(request("p", OpProvision, "users", schema("mem"))))
	mustSucceed(t, d.Save(request("s", OpSave, "users", document.Object(document.New()))))
	mustFail(t, d.Fetch(request("f", OpFetch, "users", document.String("missing"))))

	var buf bytes.Buffer
	d.WriteMetrics(&buf)
	out := buf.String()
	assert.Contains(t, out, `jsonq_commands_total{op="provision",result="success"} 1`)
	assert.Contains(t, out, `jsonq_commands_total{op="save",result="success"} 1`)
	assert.Contains(t, out, `jsonq_commands_total{op="fetch",result="failure"} 1`)
	assert.Contains(t, out, `jsonq_command_duration_seconds_count{op="save"} 1`)
}

func TestClosedScheduler(t *testing.T) {
	d, sched := newDatabase(t)
	sched.Close()

	f := d.List(request("l", OpList, "users", document.Null()))
	require.True(t, f.IsFailure())
	errDoc, _ := f.Failure().GetObject(store.ResponsePayload)
	assert.Equal(t, store.ErrInternal, store.ErrorCodeOf(errDoc))

	// handlers registered after shutdown still fire
	failures := make(chan *document.Document, 1)
	next := f.Then(func(*document.Document) {
		t.Error("closed scheduler reported success")
	}, func(response *document.Document) {
		failures <- response
	}, nil)

	select {
	case response := <-failures:
		success, err := response.GetBool(store.ResponseSuccess)
		require.NoError(t, err)
		assert.False(t, success)
	case <-time.After(5 * time.Second):
		t.Fatal("failure handler did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, ok, err := next.Await(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
