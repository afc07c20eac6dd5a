package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/jsonq/lib/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var log = logger.GetLogger("scheduler")

// task is a queued unit of work together with its submission time.
type task struct {
	fn        func()
	submitted time.Time
	barrier   bool // internal, not counted
}

// Scheduler runs tasks on a single dedicated worker goroutine.
type Scheduler struct {
	queue    *util.MPSC[task]
	pending  atomic.Int64 // submitted but not yet finished
	stopped  chan struct{}
	closeMu  sync.Mutex
	isClosed bool

	registry  metrics.Registry
	submitted metrics.Counter
	executed  metrics.Counter
	latency   metrics.Timer
}

// Stats is a snapshot of the scheduler counters.
type Stats struct {
	Submitted   int64         `json:"submitted"`
	Executed    int64         `json:"executed"`
	Pending     int           `json:"pending"`
	MeanLatency time.Duration `json:"mean_latency"`
	MaxLatency  time.Duration `json:"max_latency"`
}

// New creates a Scheduler and starts its worker.
func New() *Scheduler {
	registry := metrics.NewRegistry()
	s := &Scheduler{
		queue:     util.NewMPSC[task](),
		stopped:   make(chan struct{}),
		registry:  registry,
		submitted: metrics.NewRegisteredCounter("tasks.submitted", registry),
		executed:  metrics.NewRegisteredCounter("tasks.executed", registry),
		latency:   metrics.NewRegisteredTimer("tasks.latency", registry),
	}
	go s.work()
	log.Infof("scheduler worker started")
	return s
}

// Submit queues fn to run on the worker. Returns false if the scheduler is
// closed (fn will never run).
//
// Thread-safety: This method is thread-safe and can be called concurrently,
// including from tasks running on the worker.
func (s *Scheduler) Submit(fn func()) bool {
	if fn == nil {
		return false
	}
	s.pending.Add(1)
	if !s.queue.Push(task{fn: fn, submitted: time.Now()}) {
		s.pending.Add(-1)
		return false
	}
	s.submitted.Inc(1)
	return true
}

// work is the worker loop. It exits once the queue is closed and drained.
func (s *Scheduler) work() {
	defer close(s.stopped)
	for t := range s.queue.Recv() {
		t.fn()
		if t.barrier {
			continue
		}
		s.pending.Add(-1)
		s.executed.Inc(1)
		s.latency.UpdateSince(t.submitted)
	}
}

// Close waits until the worker is idle (nothing queued, including tasks that
// running tasks queued themselves), stops accepting new tasks and waits for the
// worker to exit. Calling Close more than once is a no-op.
//
// Close must not be called from a task running on the worker.
func (s *Scheduler) Close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.isClosed {
		return
	}
	s.isClosed = true

	// barrier tasks: once one of them finds no pending task, the worker is idle
	for {
		remaining := make(chan int64, 1)
		if !s.queue.Push(task{fn: func() { remaining <- s.pending.Load() }, barrier: true}) {
			break
		}
		if <-remaining == 0 {
			break
		}
	}

	s.queue.Close()
	<-s.stopped
	log.Infof("scheduler worker stopped after %d tasks", s.executed.Count())
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Submitted:   s.submitted.Count(),
		Executed:    s.executed.Count(),
		Pending:     int(s.pending.Load()),
		MeanLatency: time.Duration(s.latency.Mean()),
		MaxLatency:  time.Duration(s.latency.Max()),
	}
}

// Registry exposes the underlying metrics registry (e.g. for metrics.WriteOnce).
func (s *Scheduler) Registry() metrics.Registry {
	return s.registry
}
