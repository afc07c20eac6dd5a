package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/jsonq/lib/common"
	"github.com/ValentinKolb/jsonq/lib/db"
	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/future"
	"github.com/ValentinKolb/jsonq/lib/scheduler"
	"github.com/ValentinKolb/jsonq/lib/store"
	"github.com/ValentinKolb/jsonq/lib/store/mstore"
	"github.com/ValentinKolb/jsonq/lib/store/sqlstore"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("engine")

// Engine validates requests and dispatches them to its Database.
type Engine struct {
	config    common.EngineConfig
	scheduler *scheduler.Scheduler
	database  *db.Database
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates an Engine with its own scheduler and registers the providers
// named in config.
func New(config common.EngineConfig) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sched := scheduler.New()
	e := &Engine{
		config:    config,
		scheduler: sched,
		database:  db.New(sched),
	}
	for name, kind := range config.Providers {
		e.RegisterProvider(name, builtinFactory(kind, sched))
	}
	log.Debugf("engine started with config:\n%s", config.String())
	return e, nil
}

func builtinFactory(kind common.ProviderKind, exec future.Executor) store.Factory {
	switch kind {
	case common.ProviderSQLite:
		return sqlstore.NewFactory(exec)
	case common.ProviderMemory:
		return mstore.NewFactory(exec)
	default:
		// rejected by config.Validate
		panic(fmt.Errorf("%w: unknown provider kind %q", ErrInvalidState, kind))
	}
}

// RegisterProvider registers a store factory under name. The last registration
// for a name wins.
func (e *Engine) RegisterProvider(name string, factory store.Factory) {
	e.database.RegisterProvider(name, factory)
}

// Executor returns the executor commands and store futures run on. Custom
// providers create their futures with it.
func (e *Engine) Executor() future.Executor {
	return e.scheduler
}

// Database returns the Engine's Database.
func (e *Engine) Database() *db.Database {
	return e.database
}

// Scheduler returns the Engine's scheduler.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.scheduler
}

// Close drains and stops the scheduler, then closes every store. Calling Close
// more than once returns the first result.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.scheduler.Close()
		e.closeErr = e.database.Close()
		log.Debugf("engine closed")
	})
	return e.closeErr
}

// --------------------------------------------------------------------------
// Dispatch
// --------------------------------------------------------------------------

// Exec validates request and runs it. A malformed request returns a
// *ValidationError and no Future. After Close, Exec returns ErrClosed.
//
// Panics with ErrInvalidState if a parsed operation has no route.
func (e *Engine) Exec(request *document.Document) (*db.Response, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	op, err := validate(request)
	if err != nil {
		log.Debugf("rejected request: %v", err)
		return nil, err
	}

	switch op {
	case OpProvision:
		return e.database.Provision(request), nil
	case OpSave:
		return e.database.Save(request), nil
	case OpFetch:
		return e.database.Fetch(request), nil
	case OpDelete:
		return e.database.Delete(request), nil
	case OpList:
		return e.database.List(request), nil
	default:
		panic(fmt.Errorf("%w: no route for operation %s", ErrInvalidState, op))
	}
}

// validate checks the request fields in order: id, op, store, payload.
func validate(request *document.Document) (Op, error) {
	if request == nil {
		return 0, invalid("request is required")
	}
	if !present(request, store.RequestID) {
		return 0, invalid("id is required")
	}
	if _, err := request.GetString(store.RequestID); err != nil {
		return 0, invalid("id must be a string")
	}

	if !present(request, store.RequestOp) {
		return 0, invalid("op is required")
	}
	opValue, err := request.GetSingle(store.RequestOp)
	opName, ok := opValue.AsString()
	if err != nil || !ok {
		rendered := make([]string, 0, 1)
		for _, v := range request.Get(store.RequestOp) {
			rendered = append(rendered, v.String())
		}
		return 0, invalid("No operation " + strings.Join(rendered, ","))
	}
	op, err := ParseOp(opName)
	if err != nil {
		return 0, err
	}

	if !present(request, store.RequestStore) {
		return 0, invalid("store is required")
	}
	if _, err := request.GetString(store.RequestStore); err != nil {
		return 0, invalid("store must be a string")
	}
	// the payload may be null, but the key must exist
	if !request.Has(store.RequestPayload) {
		return 0, invalid("payload is required")
	}
	return op, nil
}

// present reports whether key holds a non-null value.
func present(request *document.Document, key string) bool {
	v, err := request.GetSingle(key)
	if errors.Is(err, document.ErrInvalidState) {
		return true
	}
	return !v.IsNull()
}
