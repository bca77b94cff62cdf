package transfer

import (
	"sync"

	"github.com/eapache/queue"
	"go.uber.org/zap"
)

// DefaultMaxPollFailures is how many consecutive failed attempts at reading a
// completed primitive a transfer survives.
const DefaultMaxPollFailures = 3

// DefaultCancelMessage is the error text of a cancelled primitive.
const DefaultCancelMessage = "WWW request was cancelled"

type Config struct {
	// Factory creates the primitive of each started transfer. Required.
	Factory Factory
	Logger  *zap.Logger
	// CancelMessage is the primitive error text meaning cancellation.
	CancelMessage string
	// MaxPollFailures bounds consecutive read failures, 0 means
	// DefaultMaxPollFailures and a negative value retries forever.
	MaxPollFailures int
	// MaxPending bounds transfers waiting to complete, 0 means unbounded.
	MaxPending int
	// DeliverFailures makes failed asynchronous transfers invoke their
	// callback with a response carrying the error, instead of dropping them.
	DeliverFailures bool
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.CancelMessage == "" {
		c.CancelMessage = DefaultCancelMessage
	}
	if c.MaxPollFailures == 0 {
		c.MaxPollFailures = DefaultMaxPollFailures
	}
	return c
}

// Queue owns pending transfers and the finished asynchronous ones awaiting
// delivery.
type Queue struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	incoming []*Transfer
	refused  []*Transfer // async transfers refused by a full queue
	pending  int         // len(active), readable without tickMu
	ready    int         // completed.Length(), readable without tickMu
	closed   bool

	tickMu    sync.Mutex
	active    []*Transfer
	completed *queue.Queue
}

// NewQueue panics when cfg has no Factory.
func NewQueue(cfg Config) *Queue {
	if cfg.Factory == nil {
		panic("transfer: Config.Factory is nil")
	}
	cfg = cfg.withDefaults()
	cfg.Logger = cfg.Logger.Named("transfer")
	return &Queue{
		cfg:       cfg,
		logger:    cfg.Logger,
		completed: queue.New(),
	}
}

// NewTransfer creates a transfer bound to the queue's configuration without
// enqueueing it.
func (q *Queue) NewTransfer(p Params) *Transfer {
	return newTransfer(&q.cfg, p)
}

// Enqueue hands t to the queue, it is started on the next Tick. It is safe
// for concurrent use. A transfer refused because the queue is shut down or
// full is finished right away with ErrShutdown or ErrQueueFull.
func (q *Queue) Enqueue(t *Transfer) error {
	q.mu.Lock()
	var err error
	switch {
	case q.closed:
		err = ErrShutdown
	case q.cfg.MaxPending > 0 && q.pending+len(q.incoming) >= q.cfg.MaxPending:
		err = ErrQueueFull
	default:
		q.incoming = append(q.incoming, t)
	}
	q.mu.Unlock()
	if err == nil {
		return nil
	}

	t.logger.Warn("transfer refused", zap.Error(err))
	t.finish(nil, err)
	if err == ErrQueueFull && !t.synchronous {
		q.mu.Lock()
		if !q.closed {
			q.refused = append(q.refused, t)
		}
		q.mu.Unlock()
	}
	return err
}

// Submit creates and enqueues a transfer.
func (q *Queue) Submit(p Params) (*Transfer, error) {
	t := q.NewTransfer(p)
	return t, q.Enqueue(t)
}

// Tick starts newly enqueued transfers and polls every pending one once, in
// submission order. Finished asynchronous transfers move to the completed
// list, finished synchronous ones are dropped and their waiters woken.
func (q *Queue) Tick() {
	q.tickMu.Lock()
	defer q.tickMu.Unlock()

	q.mu.Lock()
	q.active = append(q.active, q.incoming...)
	q.incoming = nil
	q.takeRefused()
	q.mu.Unlock()

	if len(q.active) == 0 {
		return
	}
	next := make([]*Transfer, 0, len(q.active))
	for _, t := range q.active {
		t.Start()
		t.Poll()
		switch {
		case !t.IsDone():
			next = append(next, t)
		case !t.synchronous:
			q.completed.Add(t)
		}
	}
	q.active = next

	q.mu.Lock()
	q.pending = len(next)
	q.ready = q.completed.Length()
	q.mu.Unlock()
}

// Deliver runs the callbacks of completed asynchronous transfers in
// completion order and reports how many ran. Callbacks may enqueue new
// transfers and read Len or Completed, but must not call Tick, Deliver or
// Shutdown.
func (q *Queue) Deliver() int {
	q.tickMu.Lock()
	defer q.tickMu.Unlock()
	q.mu.Lock()
	q.takeRefused()
	q.mu.Unlock()
	n := 0
	for q.completed.Length() > 0 {
		t := q.completed.Remove().(*Transfer)
		q.mu.Lock()
		q.ready = q.completed.Length()
		q.mu.Unlock()
		if t.Deliver() {
			n++
		}
	}
	return n
}

// takeRefused moves refused transfers to the completed list. Both locks must
// be held.
func (q *Queue) takeRefused() {
	for _, t := range q.refused {
		q.completed.Add(t)
	}
	q.refused = nil
	q.ready = q.completed.Length()
}

// Len is the number of transfers not finished yet, including those enqueued
// since the last Tick.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending + len(q.incoming)
}

// Completed is the number of finished asynchronous transfers awaiting Deliver.
func (q *Queue) Completed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready + len(q.refused)
}

// Shutdown disposes every unfinished primitive and ends its transfer with
// ErrShutdown, waking synchronous waiters. Callbacks not delivered yet are
// dropped and later Enqueue calls are refused. Calling it again does nothing.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	incoming := q.incoming
	dropped := len(q.refused)
	q.incoming, q.refused = nil, nil
	q.mu.Unlock()

	q.tickMu.Lock()
	defer q.tickMu.Unlock()
	aborted := 0
	for _, ts := range [][]*Transfer{q.active, incoming} {
		for _, t := range ts {
			if !t.IsDone() {
				t.abort(ErrShutdown)
				aborted++
			}
		}
	}
	dropped += q.completed.Length()
	q.active = nil
	q.completed = queue.New()

	q.mu.Lock()
	q.pending, q.ready = 0, 0
	q.mu.Unlock()
	q.logger.Info("queue shut down", zap.Int("aborted", aborted), zap.Int("dropped", dropped))
}
