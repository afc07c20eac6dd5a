// Package scheduler provides the serialized asynchronous task executor of jsonq.
//
// A Scheduler owns one worker goroutine that runs submitted tasks strictly one
// at a time, in the order their Submit calls took effect. Submit never blocks
// and never runs the task on the caller's stack. Tasks are queued on an
// unbounded lock-free MPSC queue (see lib/util), so any number of goroutines
// may submit concurrently.
//
// Guarantees:
//   - Tasks never interleave: code running on the worker needs no further locking
//     against other tasks
//   - FIFO per producer: tasks submitted from one goroutine (including from the
//     worker itself) run in submission order
//   - No priority, no cancellation, no timeout: a submitted task always runs
//
// Close stops accepting tasks, drains what is queued and waits for the worker.
// Stats reports counters and a latency timer backed by rcrowley/go-metrics.
package scheduler
