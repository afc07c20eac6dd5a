package db

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/future"
	"github.com/ValentinKolb/jsonq/lib/store"
)

// call is one running command. It settles the command's Response exactly once.
type call struct {
	d        *Database
	op       string
	request  *document.Document
	start    time.Time
	response *Response
}

// command submits body to the executor and returns the Future body settles
// through the call.
func (d *Database) command(op string, request *document.Document, body func(c *call)) *Response {
	c := &call{
		d:        d,
		op:       op,
		request:  request,
		start:    time.Now(),
		response: future.New[*document.Document, *document.Document](d.exec),
	}
	if !d.exec.Submit(func() { body(c) }) {
		c.fail(store.NewError(store.ErrInternal, "scheduler is closed"))
	}
	return c.response
}

func (c *call) succeed(payload document.Value) {
	c.observe("success")
	c.response.Complete(envelope(c.request, true, payload))
}

func (c *call) fail(errDoc *document.Document) {
	c.observe("failure")
	log.Debugf("%s command failed: %s", c.op, errDoc)
	c.response.Fail(envelope(c.request, false, document.Object(errDoc)))
}

func (c *call) observe(result string) {
	c.d.metrics.GetOrCreateCounter(fmt.Sprintf(`jsonq_commands_total{op=%q,result=%q}`, c.op, result)).Inc()
	c.d.metrics.GetOrCreateHistogram(fmt.Sprintf(`jsonq_command_duration_seconds{op=%q}`, c.op)).UpdateDuration(c.start)
}

// relay settles the call with the outcome of inner. convert turns a result into
// the response payload, or into an error Document to fail with instead.
func relay[T any](c *call, inner *future.Future[T, *document.Document], convert func(T) (document.Value, *document.Document)) {
	inner.Then(
		func(result T) {
			payload, errDoc := convert(result)
			if errDoc != nil {
				c.fail(errDoc)
				return
			}
			c.succeed(payload)
		},
		c.fail,
		nil,
	)
}

// envelope builds a response Document for request.
func envelope(request *document.Document, success bool, payload document.Value) *document.Document {
	requestID, _ := request.GetSingle(store.RequestID)

	response := document.New()
	response.Put(store.ResponseRequestID, requestID)
	response.PutBool(store.ResponseSuccess, success)
	response.Put(store.ResponsePayload, payload)
	if request.Has(store.RequestTxnID) {
		txnID, _ := request.GetSingle(store.RequestTxnID)
		response.Put(store.ResponseTxnID, txnID)
	}
	return response
}
