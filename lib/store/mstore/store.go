package mstore

import (
	"sort"
	"sync/atomic"

	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/future"
	"github.com/ValentinKolb/jsonq/lib/store"
	"github.com/ValentinKolb/jsonq/lib/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// ProviderName is the provider name the memory store is usually registered under.
const ProviderName = "memory"

type record struct {
	seq uint64
	doc *document.Document
}

type storeImpl struct {
	exec    future.Executor
	newID   util.IDGenerator
	idField string
	schema  *document.Document
	records *xsync.MapOf[string, record]
	seq     atomic.Uint64
}

// NewFactory returns a Factory creating memory stores whose operations run on exec.
func NewFactory(exec future.Executor) store.Factory {
	return NewFactoryWithIDs(exec, util.NewID)
}

// NewFactoryWithIDs is NewFactory with a custom id generator for saved documents.
func NewFactoryWithIDs(exec future.Executor, newID util.IDGenerator) store.Factory {
	return store.FactoryFunc(func(schema *document.Document) *future.Future[store.Store, *document.Document] {
		return future.Completed[store.Store, *document.Document](exec, newStore(exec, newID, schema))
	})
}

func newStore(exec future.Executor, newID util.IDGenerator, schema *document.Document) *storeImpl {
	return &storeImpl{
		exec:    exec,
		newID:   newID,
		idField: store.IDFieldFromSchema(schema),
		schema:  schema,
		records: xsync.NewMapOf[string, record](),
	}
}

// run executes op on the executor and returns its future.
func run[T any](s *storeImpl, op func(f *future.Future[T, *document.Document])) *future.Future[T, *document.Document] {
	f := future.New[T, *document.Document](s.exec)
	if !s.exec.Submit(func() { op(f) }) {
		f.Fail(store.NewError(store.ErrInternal, "scheduler is closed"))
	}
	return f
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) IDField() string {
	return s.idField
}

func (s *storeImpl) Save(request *document.Document) *future.Future[string, *document.Document] {
	return run(s, func(f *future.Future[string, *document.Document]) {
		payload, errDoc := store.PayloadDocument(request)
		if errDoc != nil {
			f.Fail(errDoc)
			return
		}

		id, ok, errDoc := store.DocumentID(payload, s.idField)
		if errDoc != nil {
			f.Fail(errDoc)
			return
		}
		if !ok {
			id = s.newID()
			payload.PutString(s.idField, id)
		}

		// TODO: validate payload against s.schema once schema validation exists
		s.records.Compute(id, func(old record, loaded bool) (record, bool) {
			if loaded {
				return record{seq: old.seq, doc: payload}, false
			}
			return record{seq: s.seq.Add(1), doc: payload}, false
		})
		f.Complete(id)
	})
}

func (s *storeImpl) Fetch(request *document.Document) *future.Future[*document.Document, *document.Document] {
	return run(s, func(f *future.Future[*document.Document, *document.Document]) {
		id, errDoc := store.PayloadID(request)
		if errDoc != nil {
			f.Fail(errDoc)
			return
		}
		rec, ok := s.records.Load(id)
		if !ok {
			f.Fail(store.NewError(store.ErrNotFound, "no document with id {0}", id))
			return
		}
		f.Complete(rec.doc)
	})
}

func (s *storeImpl) Delete(request *document.Document) *future.Future[struct{}, *document.Document] {
	return run(s, func(f *future.Future[struct{}, *document.Document]) {
		id, errDoc := store.PayloadID(request)
		if errDoc != nil {
			f.Fail(errDoc)
			return
		}
		s.records.Delete(id)
		f.Complete(struct{}{})
	})
}

func (s *storeImpl) List(_ *document.Document) *future.Future[[]*document.Document, *document.Document] {
	return run(s, func(f *future.Future[[]*document.Document, *document.Document]) {
		records := make([]record, 0, s.records.Size())
		s.records.Range(func(_ string, rec record) bool {
			records = append(records, rec)
			return true
		})
		sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

		docs := make([]*document.Document, len(records))
		for i, rec := range records {
			docs[i] = rec.doc
		}
		f.Complete(docs)
	})
}
