package db

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/future"
	"github.com/ValentinKolb/jsonq/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("db")

// Response is the Future returned by every command. Both outcomes carry a
// response envelope.
type Response = future.Future[*document.Document, *document.Document]

// Operation names as used in requests and metric labels.
const (
	OpProvision = "provision"
	OpSave      = "save"
	OpFetch     = "fetch"
	OpDelete    = "delete"
	OpList      = "list"
)

// Database is the store registry and command executor.
type Database struct {
	exec future.Executor

	mu        sync.Mutex
	providers map[string]store.Factory
	stores    map[string]store.Store

	metrics *metrics.Set
}

// New creates an empty Database whose commands run on exec.
func New(exec future.Executor) *Database {
	return &Database{
		exec:      exec,
		providers: make(map[string]store.Factory),
		stores:    make(map[string]store.Store),
		metrics:   metrics.NewSet(),
	}
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// RegisterProvider registers factory under name. A later registration for the
// same name replaces the earlier one.
func (d *Database) RegisterProvider(name string, factory store.Factory) {
	d.mu.Lock()
	_, replaced := d.providers[name]
	d.providers[name] = factory
	d.mu.Unlock()

	if replaced {
		log.Infof("replaced store provider %q", name)
	} else {
		log.Infof("registered store provider %q", name)
	}
}

// Store returns the store provisioned under name.
func (d *Database) Store(name string) (store.Store, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.stores[name]
	return s, ok
}

// StoreNames returns the names of all provisioned stores, sorted.
func (d *Database) StoreNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.stores))
}

// Close releases every provisioned store that implements io.Closer and empties
// the store registry. Providers stay registered.
func (d *Database) Close() error {
	d.mu.Lock()
	stores := d.stores
	d.stores = make(map[string]store.Store)
	d.mu.Unlock()

	var errs []error
	for name, s := range stores {
		if closer, ok := s.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store %q: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// WriteMetrics writes the command metrics in Prometheus text format.
func (d *Database) WriteMetrics(w io.Writer) {
	d.metrics.WritePrometheus(w)
}

// storeName returns the store name of request. A non-string name yields an
// ErrInvalidInput error Document.
func storeName(request *document.Document) (string, *document.Document) {
	name, err := request.GetString(store.RequestStore)
	if err != nil {
		return "", store.NewError(store.ErrInvalidInput, "store name must be a string")
	}
	return name, nil
}

func (d *Database) lookup(request *document.Document) (store.Store, *document.Document) {
	name, errDoc := storeName(request)
	if errDoc != nil {
		return nil, errDoc
	}
	d.mu.Lock()
	s, ok := d.stores[name]
	d.mu.Unlock()
	if !ok {
		return nil, store.NewError(store.ErrInvalidStore, "no store named {0}", name)
	}
	return s, nil
}

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

// Provision creates a store named by request.store from the schema in
// request.payload, using the provider the schema names.
func (d *Database) Provision(request *document.Document) *Response {
	return d.command(OpProvision, request, func(c *call) {
		name, errDoc := storeName(request)
		if errDoc != nil {
			c.fail(errDoc)
			return
		}

		d.mu.Lock()
		_, exists := d.stores[name]
		d.mu.Unlock()
		if exists {
			c.fail(store.NewError(store.ErrStoreExists, "store {0} already exists", name))
			return
		}

		schema, err := request.GetObject(store.RequestPayload)
		if err != nil || schema == nil {
			c.fail(store.NewError(store.ErrInvalidInput, "payload must be a schema document"))
			return
		}
		provider, err := schema.GetString(store.SchemaProvider)
		if err != nil || provider == "" {
			c.fail(store.NewError(store.ErrInvalidInput, "schema must name a provider"))
			return
		}

		d.mu.Lock()
		factory, ok := d.providers[provider]
		d.mu.Unlock()
		if !ok {
			c.fail(store.NewError(store.ErrNoSuchProvider, "no provider named {0}", provider))
			return
		}

		relay(c, factory.Create(schema), func(s store.Store) (document.Value, *document.Document) {
			d.mu.Lock()
			defer d.mu.Unlock()
			// another provision of the same name may have finished first
			if _, exists := d.stores[name]; exists {
				if closer, ok := s.(io.Closer); ok {
					_ = closer.Close()
				}
				return document.Null(), store.NewError(store.ErrStoreExists, "store {0} already exists", name)
			}
			d.stores[name] = s
			log.Infof("provisioned store %q with provider %q", name, provider)
			return document.Null(), nil
		})
	})
}

// Save stores request.payload in the named store. The response payload is the
// document id.
func (d *Database) Save(request *document.Document) *Response {
	return d.command(OpSave, request, func(c *call) {
		s, errDoc := d.lookup(request)
		if errDoc != nil {
			c.fail(errDoc)
			return
		}
		relay(c, s.Save(request), func(id string) (document.Value, *document.Document) {
			return document.String(id), nil
		})
	})
}

// Fetch loads the document whose id is request.payload from the named store.
func (d *Database) Fetch(request *document.Document) *Response {
	return d.command(OpFetch, request, func(c *call) {
		s, errDoc := d.lookup(request)
		if errDoc != nil {
			c.fail(errDoc)
			return
		}
		relay(c, s.Fetch(request), func(doc *document.Document) (document.Value, *document.Document) {
			return document.Object(doc), nil
		})
	})
}

// Delete removes the document whose id is request.payload from the named
// store. The response payload is null.
func (d *Database) Delete(request *document.Document) *Response {
	return d.command(OpDelete, request, func(c *call) {
		s, errDoc := d.lookup(request)
		if errDoc != nil {
			c.fail(errDoc)
			return
		}
		relay(c, s.Delete(request), func(struct{}) (document.Value, *document.Document) {
			return document.Null(), nil
		})
	})
}

// List returns every document of the named store as a document list.
func (d *Database) List(request *document.Document) *Response {
	return d.command(OpList, request, func(c *call) {
		s, errDoc := d.lookup(request)
		if errDoc != nil {
			c.fail(errDoc)
			return
		}
		relay(c, s.List(request), func(docs []*document.Document) (document.Value, *document.Document) {
			return document.List(docs...), nil
		})
	})
}
