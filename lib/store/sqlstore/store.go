package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/future"
	"github.com/ValentinKolb/jsonq/lib/store"
	"github.com/ValentinKolb/jsonq/lib/util"
	"github.com/lni/dragonboat/v4/logger"

	_ "modernc.org/sqlite"
)

// ProviderName is the provider name the SQLite store is usually registered under.
const ProviderName = "sqlite"

var log = logger.GetLogger("store")

const (
	createTable = `CREATE TABLE IF NOT EXISTS documents (
		id   TEXT PRIMARY KEY,
		body TEXT NOT NULL
	)`
	upsertDocument = `INSERT INTO documents (id, body) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body`
	selectDocument = `SELECT body FROM documents WHERE id = ?`
	deleteDocument = `DELETE FROM documents WHERE id = ?`
	selectAll      = `SELECT body FROM documents ORDER BY rowid`
)

type storeImpl struct {
	exec    future.Executor
	newID   util.IDGenerator
	idField string
	sqlDB   *sql.DB
}

// NewFactory returns a Factory creating SQLite memory stores whose operations run on exec.
func NewFactory(exec future.Executor) store.Factory {
	return store.FactoryFunc(func(schema *document.Document) *future.Future[store.Store, *document.Document] {
		f := future.New[store.Store, *document.Document](exec)
		submitted := exec.Submit(func() {
			s, err := open(exec, util.NewID, store.IDFieldFromSchema(schema))
			if err != nil {
				log.Errorf("failed to open sqlite store: %v", err)
				f.Fail(store.NewError(store.ErrInternal, "cannot open sqlite store: {0}", err.Error()))
				return
			}
			f.Complete(s)
		})
		if !submitted {
			f.Fail(store.NewError(store.ErrInternal, "scheduler is closed"))
		}
		return f
	})
}

// open creates a private memory database with the documents table.
func open(exec future.Executor, newID util.IDGenerator, idField string) (*storeImpl, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// every connection to ":memory:" is a separate database
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if _, err := sqlDB.Exec(createTable); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &storeImpl{
		exec:    exec,
		newID:   newID,
		idField: idField,
		sqlDB:   sqlDB,
	}, nil
}

// run executes op on the executor and returns its future.
func run[T any](s *storeImpl, op func(ctx context.Context, f *future.Future[T, *document.Document])) *future.Future[T, *document.Document] {
	f := future.New[T, *document.Document](s.exec)
	if !s.exec.Submit(func() { op(context.Background(), f) }) {
		f.Fail(store.NewError(store.ErrInternal, "scheduler is closed"))
	}
	return f
}

func internalError(action string, err error) *document.Document {
	log.Errorf("sqlite %s failed: %v", action, err)
	return store.NewError(store.ErrInternal, "sqlite {0} failed: {1}", action, err.Error())
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) IDField() string {
	return s.idField
}

func (s *storeImpl) Save(request *document.Document) *future.Future[string, *document.Document] {
	return run(s, func(ctx context.Context, f *future.Future[string, *document.Document]) {
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

		body, err := encodeDocument(payload)
		if err != nil {
			f.Fail(store.NewError(store.ErrInvalidInput, "payload cannot be encoded: {0}", err.Error()))
			return
		}
		if _, err := s.sqlDB.ExecContext(ctx, upsertDocument, id, string(body)); err != nil {
			f.Fail(internalError("save", err))
			return
		}
		f.Complete(id)
	})
}

func (s *storeImpl) Fetch(request *document.Document) *future.Future[*document.Document, *document.Document] {
	return run(s, func(ctx context.Context, f *future.Future[*document.Document, *document.Document]) {
		id, errDoc := store.PayloadID(request)
		if errDoc != nil {
			f.Fail(errDoc)
			return
		}
		var body string
		err := s.sqlDB.QueryRowContext(ctx, selectDocument, id).Scan(&body)
		if errors.Is(err, sql.ErrNoRows) {
			f.Fail(store.NewError(store.ErrNotFound, "no document with id {0}", id))
			return
		}
		if err != nil {
			f.Fail(internalError("fetch", err))
			return
		}
		doc, err := decodeDocument([]byte(body))
		if err != nil {
			f.Fail(internalError("decode", err))
			return
		}
		f.Complete(doc)
	})
}

func (s *storeImpl) Delete(request *document.Document) *future.Future[struct{}, *document.Document] {
	return run(s, func(ctx context.Context, f *future.Future[struct{}, *document.Document]) {
		id, errDoc := store.PayloadID(request)
		if errDoc != nil {
			f.Fail(errDoc)
			return
		}
		if _, err := s.sqlDB.ExecContext(ctx, deleteDocument, id); err != nil {
			f.Fail(internalError("delete", err))
			return
		}
		f.Complete(struct{}{})
	})
}

func (s *storeImpl) List(_ *document.Document) *future.Future[[]*document.Document, *document.Document] {
	return run(s, func(ctx context.Context, f *future.Future[[]*document.Document, *document.Document]) {
		rows, err := s.sqlDB.QueryContext(ctx, selectAll)
		if err != nil {
			f.Fail(internalError("list", err))
			return
		}
		defer rows.Close()

		docs := []*document.Document{}
		for rows.Next() {
			var body string
			if err := rows.Scan(&body); err != nil {
				f.Fail(internalError("list", err))
				return
			}
			doc, err := decodeDocument([]byte(body))
			if err != nil {
				f.Fail(internalError("decode", err))
				return
			}
			docs = append(docs, doc)
		}
		if err := rows.Err(); err != nil {
			f.Fail(internalError("list", err))
			return
		}
		f.Complete(docs)
	})
}

// Close closes the underlying database. The documents are gone afterwards.
func (s *storeImpl) Close() error {
	return s.sqlDB.Close()
}
