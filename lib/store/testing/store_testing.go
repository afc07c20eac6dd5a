package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/future"
	"github.com/ValentinKolb/jsonq/lib/scheduler"
	"github.com/ValentinKolb/jsonq/lib/store"
	"github.com/stretchr/testify/require"
)

// StoreFactory builds the Factory under test for the given executor.
type StoreFactory func(exec future.Executor) store.Factory

// awaitTimeout bounds every wait on a store future.
const awaitTimeout = 5 * time.Second

// RunStoreTests runs the conformance suite for a store.Store implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SaveGeneratesID", func(t *testing.T) {
			testSaveGeneratesID(t, newStore(t, factory, nil))
		})

		t.Run("SaveExplicitID", func(t *testing.T) {
			testSaveExplicitID(t, newStore(t, factory, nil))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, newStore(t, factory, nil))
		})

		t.Run("FetchMissing", func(t *testing.T) {
			testFetchMissing(t, newStore(t, factory, nil))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, newStore(t, factory, nil))
		})

		t.Run("ListOrder", func(t *testing.T) {
			testListOrder(t, newStore(t, factory, nil))
		})

		t.Run("InvalidPayload", func(t *testing.T) {
			testInvalidPayload(t, newStore(t, factory, nil))
		})

		t.Run("CustomIDField", func(t *testing.T) {
			schema := document.New()
			schema.PutString(store.SchemaIDField, "key")
			testCustomIDField(t, newStore(t, factory, schema))
		})

		t.Run("ConcurrentSaves", func(t *testing.T) {
			testConcurrentSaves(t, newStore(t, factory, nil))
		})

		t.Run("ValueKinds", func(t *testing.T) {
			testValueKinds(t, newStore(t, factory, nil))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// newStore provisions a store on a fresh scheduler. The scheduler (and the
// store, if it implements Close) is released when the test ends.
func newStore(t *testing.T, factory StoreFactory, schema *document.Document) store.Store {
	t.Helper()
	sched := scheduler.New()
	t.Cleanup(sched.Close)

	if schema == nil {
		schema = document.New()
	}
	s := await(t, factory(sched).Create(schema))
	if closer, ok := s.(interface{ Close() error }); ok {
		t.Cleanup(func() { _ = closer.Close() })
	}
	return s
}

// await waits for f and fails the test if it did not complete successfully.
func await[T any](t *testing.T, f *future.Future[T, *document.Document]) T {
	t.Helper()
	result, failure := awaitResult(t, f)
	require.Nil(t, failure, "unexpected failure: %v", failure)
	return result
}

// awaitFailure waits for f and returns its error code. The test fails if f completed.
func awaitFailure[T any](t *testing.T, f *future.Future[T, *document.Document]) string {
	t.Helper()
	_, failure := awaitResult(t, f)
	require.NotNil(t, failure, "expected a failure")
	return store.ErrorCodeOf(failure)
}

func awaitResult[T any](t *testing.T, f *future.Future[T, *document.Document]) (T, *document.Document) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), awaitTimeout)
	defer cancel()
	result, failure, _, err := f.Await(ctx)
	require.NoError(t, err, "future did not settle")
	return result, failure
}

// request builds a request Document with the given op and payload.
func request(op string, payload document.Value) *document.Document {
	r := document.New()
	r.PutString(store.RequestID, "r")
	r.PutString(store.RequestOp, op)
	r.PutString(store.RequestStore, "test")
	r.Put(store.RequestPayload, payload)
	return r
}

func save(t *testing.T, s store.Store, doc *document.Document) string {
	t.Helper()
	return await(t, s.Save(request("save", document.Object(doc))))
}

func fetch(t *testing.T, s store.Store, id string) *document.Document {
	t.Helper()
	return await(t, s.Fetch(request("fetch", document.String(id))))
}

func list(t *testing.T, s store.Store) []*document.Document {
	t.Helper()
	return await(t, s.List(request("list", document.Null())))
}

func named(name string) *document.Document {
	d := document.New()
	d.PutString("name", name)
	return d
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSaveGeneratesID(t *testing.T, s store.Store) {
	require.Equal(t, store.DefaultIDField, s.IDField())

	id := save(t, s, named("alice"))
	require.NotEmpty(t, id)

	fetched := fetch(t, s, id)
	name, err := fetched.GetString("name")
	require.NoError(t, err)
	require.Equal(t, "alice", name)

	storedID, err := fetched.GetString(store.DefaultIDField)
	require.NoError(t, err)
	require.Equal(t, id, storedID)

	other := save(t, s, named("bob"))
	require.NotEqual(t, id, other, "generated ids must be unique")
}

func testSaveExplicitID(t *testing.T, s store.Store) {
	doc := named("carol")
	doc.PutString(store.DefaultIDField, "c-1")

	require.Equal(t, "c-1", save(t, s, doc))

	fetched := fetch(t, s, "c-1")
	require.True(t, doc.Equal(fetched), "expected %s, got %s", doc, fetched)
}

func testOverwrite(t *testing.T, s store.Store) {
	first := named("first")
	first.PutString(store.DefaultIDField, "a")
	second := named("second")
	second.PutString(store.DefaultIDField, "b")
	save(t, s, first)
	save(t, s, second)

	replaced := named("first-v2")
	replaced.PutString(store.DefaultIDField, "a")
	require.Equal(t, "a", save(t, s, replaced))

	fetched := fetch(t, s, "a")
	name, _ := fetched.GetString("name")
	require.Equal(t, "first-v2", name)

	docs := list(t, s)
	require.Len(t, docs, 2)
	ids := []string{}
	for _, d := range docs {
		id, _ := d.GetString(store.DefaultIDField)
		ids = append(ids, id)
	}
	require.Equal(t, []string{"a", "b"}, ids, "an overwrite keeps the list position")
}

func testFetchMissing(t *testing.T, s store.Store) {
	code := awaitFailure(t, s.Fetch(request("fetch", document.String("missing"))))
	require.Equal(t, store.ErrNotFound, code)
}

func testDelete(t *testing.T, s store.Store) {
	id := save(t, s, named("dave"))

	await(t, s.Delete(request("delete", document.String(id))))
	code := awaitFailure(t, s.Fetch(request("fetch", document.String(id))))
	require.Equal(t, store.ErrNotFound, code)
	require.Empty(t, list(t, s))

	// deleting again, or deleting an unknown id, succeeds
	await(t, s.Delete(request("delete", document.String(id))))
	await(t, s.Delete(request("delete", document.String("never-saved"))))
}

func testListOrder(t *testing.T, s store.Store) {
	docs := list(t, s)
	require.NotNil(t, docs)
	require.Empty(t, docs)

	const n = 25
	want := make([]string, n)
	for i := 0; i < n; i++ {
		want[i] = save(t, s, named(fmt.Sprintf("doc-%02d", i)))
	}

	docs = list(t, s)
	require.Len(t, docs, n)
	for i, d := range docs {
		id, err := d.GetString(store.DefaultIDField)
		require.NoError(t, err)
		require.Equal(t, want[i], id)
	}
}

func testInvalidPayload(t *testing.T, s store.Store) {
	cases := map[string]*future.Future[string, *document.Document]{
		"save string":  s.Save(request("save", document.String("not a document"))),
		"save null":    s.Save(request("save", document.Null())),
		"save list":    s.Save(request("save", document.List(named("x")))),
		"save bad id":  s.Save(request("save", document.Object(idOf(document.Int(7))))),
		"save two ids": s.Save(request("save", document.Object(twoIDs()))),
	}
	for name, f := range cases {
		require.Equal(t, store.ErrInvalidInput, awaitFailure(t, f), name)
	}

	require.Equal(t, store.ErrInvalidInput, awaitFailure(t, s.Fetch(request("fetch", document.Int(1)))))
	require.Equal(t, store.ErrInvalidInput, awaitFailure(t, s.Fetch(request("fetch", document.String("")))))
	require.Equal(t, store.ErrInvalidInput, awaitFailure(t, s.Delete(request("delete", document.Null()))))

	require.Empty(t, list(t, s), "failed saves must not store anything")
}

func idOf(v document.Value) *document.Document {
	d := document.New()
	d.Put(store.DefaultIDField, v)
	return d
}

func twoIDs() *document.Document {
	d := document.New()
	d.Add(store.DefaultIDField, document.String("a"))
	d.Add(store.DefaultIDField, document.String("b"))
	return d
}

func testCustomIDField(t *testing.T, s store.Store) {
	require.Equal(t, "key", s.IDField())

	doc := named("erin")
	doc.PutString("key", "e-1")
	require.Equal(t, "e-1", save(t, s, doc))

	generated := save(t, s, named("frank"))
	fetched := fetch(t, s, generated)
	key, err := fetched.GetString("key")
	require.NoError(t, err)
	require.Equal(t, generated, key)
	require.False(t, fetched.Has(store.DefaultIDField))
}

func testConcurrentSaves(t *testing.T, s store.Store) {
	const workers, perWorker = 8, 20

	var wg sync.WaitGroup
	futures := make(chan *future.Future[string, *document.Document], workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				futures <- s.Save(request("save", document.Object(named(fmt.Sprintf("w%d-%d", w, i)))))
			}
		}(w)
	}
	wg.Wait()
	close(futures)

	seen := map[string]bool{}
	for f := range futures {
		id := await(t, f)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	require.Len(t, list(t, s), workers*perWorker)
}

func testValueKinds(t *testing.T, s store.Store) {
	inner := document.New()
	inner.PutBool("ok", true)

	doc := document.New()
	doc.PutString(store.DefaultIDField, "kinds")
	doc.PutNull("nothing")
	doc.PutInt("int", 42)
	doc.PutDouble("double", 1.0)
	doc.PutObject("object", inner)
	doc.Put("list", document.List(named("a"), named("b")))
	doc.Add("tags", document.String("x"))
	doc.Add("tags", document.String("y"))
	doc.Add("children", document.Object(named("c1")))
	doc.Add("children", document.Object(named("c2")))
	doc.Put("empty", document.List())
	doc.PutList("none", nil)
	doc.PutObject("blank", document.New())

	save(t, s, doc)
	fetched := fetch(t, s, "kinds")
	require.True(t, doc.Equal(fetched), "expected %s, got %s", doc, fetched)

	// several Document values stay several values, not one list
	children := fetched.Get("children")
	require.Len(t, children, 2)
	for _, child := range children {
		require.Equal(t, document.KindDocument, child.Kind())
	}
	_, err := fetched.GetSingle("children")
	require.Error(t, err)

	// an empty list stays one empty list value
	empty := fetched.Get("empty")
	require.Len(t, empty, 1)
	list, ok := empty[0].AsList()
	require.True(t, ok)
	require.Empty(t, list)

	require.True(t, fetched.Has("none"))
	require.Empty(t, fetched.Get("none"))

	d, err := fetched.GetDouble("double")
	require.NoError(t, err)
	require.Equal(t, 1.0, d)
	i, err := fetched.GetInt("int")
	require.NoError(t, err)
	require.Equal(t, int64(42), i)
}
