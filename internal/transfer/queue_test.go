package transfer

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/frankli0324/pollhttp/internal/model"
)

// drive ticks q from its own goroutine until the returned stop is called.
func drive(q *Queue) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tick := time.NewTicker(time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				q.Tick()
				q.Deliver()
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func TestNewQueueRequiresFactory(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewQueue accepted a nil factory")
		}
	}()
	NewQueue(Config{})
}

func TestQueueDeliversInCompletionOrder(t *testing.T) {
	f := &fakeFactory{}
	q, _ := newTestQueue(t, f, nil)
	var order []string
	for _, u := range []string{"a", "b", "c", "d"} {
		if _, err := q.Submit(Params{Request: request(u), Callback: func(r *model.Response) {
			order = append(order, r.Request.URL)
		}}); err != nil {
			t.Fatal(err)
		}
	}
	if q.Len() != 4 {
		t.Fatalf("len = %d", q.Len())
	}
	q.Tick()
	prims := f.created()
	if len(prims) != 4 {
		t.Fatalf("started %d transfers", len(prims))
	}

	finish := func(i int) { prims[i].set(completeWith("")) }
	finish(2)
	q.Tick()
	finish(3)
	finish(0)
	q.Tick()
	if q.Completed() != 3 || q.Len() != 1 {
		t.Fatalf("completed = %d, len = %d", q.Completed(), q.Len())
	}
	if n := q.Deliver(); n != 3 {
		t.Fatalf("delivered %d", n)
	}
	finish(1)
	q.Tick()
	q.Deliver()

	// same tick completions keep submission order
	want := []string{"c", "a", "d", "b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if q.Len() != 0 || q.Completed() != 0 {
		t.Errorf("len = %d, completed = %d", q.Len(), q.Completed())
	}
	if q.Deliver() != 0 {
		t.Error("second drain delivered again")
	}
}

func TestQueueSynchronousNeverCompleted(t *testing.T) {
	q, _ := newTestQueue(t, &fakeFactory{setup: completeWith("x")}, nil)
	var delivered int
	q.Submit(Params{Request: request("async"), Callback: func(*model.Response) { delivered++ }})
	st, _ := q.Submit(Params{Request: request("sync"), Synchronous: true})
	q.Tick()
	if q.Completed() != 1 {
		t.Errorf("completed = %d", q.Completed())
	}
	if !st.IsDone() || st.Response() == nil {
		t.Error("sync transfer not finished")
	}
	q.Deliver()
	if delivered != 1 {
		t.Errorf("delivered = %d", delivered)
	}
}

func TestQueueSyncWaitFromAnotherGoroutine(t *testing.T) {
	const latency = 30 * time.Millisecond
	f := &fakeFactory{setup: func(p *fakePrim) {
		p.readyAt = time.Now().Add(latency)
		p.resp = []byte("late")
	}}
	q, _ := newTestQueue(t, f, nil)
	stop := drive(q)
	defer stop()

	start := time.Now()
	tr, err := q.Submit(Params{Request: request("u"), Synchronous: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := tr.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < latency {
		t.Errorf("returned after %v, before the primitive finished", elapsed)
	}
	if resp == nil || resp.Text != "late" {
		t.Errorf("response = %+v", resp)
	}
}

func TestQueueWaitHonoursContext(t *testing.T) {
	q, _ := newTestQueue(t, &fakeFactory{}, nil)
	tr, _ := q.Submit(Params{Request: request("u"), Synchronous: true})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := tr.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	q, _ := newTestQueue(t, &fakeFactory{setup: completeWith("x")}, nil)
	stop := drive(q)
	defer stop()

	const n = 50
	var (
		mu  sync.Mutex
		got int
		wg  sync.WaitGroup
	)
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Submit(Params{Request: request("u"), Callback: func(*model.Response) {
				mu.Lock()
				got++
				if got == n {
					close(done)
				}
				mu.Unlock()
			}})
		}()
	}
	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not every callback ran")
	}
}

func TestQueueCallbackMayEnqueue(t *testing.T) {
	q, _ := newTestQueue(t, &fakeFactory{setup: completeWith("x")}, func(c *Config) { c.MaxPending = 1 })
	var second *Transfer
	q.Submit(Params{Request: request("first"), Callback: func(*model.Response) {
		second, _ = q.Submit(Params{Request: request("second"), Callback: func(*model.Response) {}})
	}})
	q.Tick()
	if q.Deliver() != 1 || second == nil {
		t.Fatal("first callback did not run")
	}
	q.Tick()
	if !second.IsDone() || second.Err() != nil {
		t.Errorf("second transfer: done = %v, err = %v", second.IsDone(), second.Err())
	}
}

func TestQueueMaxPending(t *testing.T) {
	f := &fakeFactory{}
	q, _ := newTestQueue(t, f, func(c *Config) {
		c.MaxPending = 2
		c.DeliverFailures = true
	})
	var refused *model.Response
	q.Submit(Params{Request: request("a")})
	q.Submit(Params{Request: request("b")})
	tr, err := q.Submit(Params{Request: request("c"), Callback: func(r *model.Response) { refused = r }})
	if !errors.Is(err, ErrQueueFull) || !errors.Is(tr.Err(), ErrQueueFull) {
		t.Fatalf("err = %v, transfer err = %v", err, tr.Err())
	}
	if _, err := q.Submit(Params{Request: request("d"), Synchronous: true}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("sync err = %v", err)
	}
	if q.Completed() != 1 {
		t.Errorf("completed = %d", q.Completed())
	}
	q.Tick()
	if len(f.created()) != 2 {
		t.Errorf("started %d transfers", len(f.created()))
	}
	q.Deliver()
	if refused == nil || !errors.Is(refused.Err, ErrQueueFull) {
		t.Errorf("refusal delivered as %+v", refused)
	}
}

func TestQueueShutdown(t *testing.T) {
	f := &fakeFactory{}
	q, logs := newTestQueue(t, f, nil)
	var delivered int
	cb := func(*model.Response) { delivered++ }

	q.Submit(Params{Request: request("finished"), Callback: cb})
	q.Tick()
	f.created()[0].set(completeWith("x"))
	q.Tick()
	st, _ := q.Submit(Params{Request: request("sync"), Synchronous: true})
	q.Tick()
	late, _ := q.Submit(Params{Request: request("never started"), Callback: cb})

	waited := make(chan error, 1)
	go func() {
		_, err := st.Wait(context.Background())
		waited <- err
	}()

	q.Shutdown()
	q.Shutdown()
	select {
	case err := <-waited:
		if !errors.Is(err, ErrShutdown) {
			t.Errorf("waiter got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown left the waiter blocked")
	}
	if f.created()[1].disposals() != 1 {
		t.Error("outstanding primitive not disposed")
	}
	if !late.IsDone() || !errors.Is(late.Err(), ErrShutdown) {
		t.Errorf("unstarted transfer: err = %v", late.Err())
	}
	if q.Deliver() != 0 || delivered != 0 {
		t.Error("callbacks ran after shutdown")
	}
	if q.Len() != 0 || q.Completed() != 0 {
		t.Errorf("len = %d, completed = %d", q.Len(), q.Completed())
	}
	if _, err := q.Submit(Params{Request: request("after")}); !errors.Is(err, ErrShutdown) {
		t.Errorf("enqueue after shutdown: %v", err)
	}
	q.Tick()
	if len(f.created()) != 2 {
		t.Error("transfer started after shutdown")
	}
	if logs.FilterMessage("queue shut down").Len() != 1 {
		t.Error("shutdown logged more than once")
	}
}

func TestQueueCallbackMayReadCounts(t *testing.T) {
	q, _ := newTestQueue(t, &fakeFactory{setup: completeWith("x")}, nil)
	var seen []int
	cb := func(*model.Response) { seen = append(seen, q.Completed(), q.Len()) }
	q.Submit(Params{Request: request("a"), Callback: cb})
	q.Submit(Params{Request: request("b"), Callback: cb})
	q.Tick()

	delivered := make(chan int)
	go func() { delivered <- q.Deliver() }()
	select {
	case n := <-delivered:
		if n != 2 {
			t.Fatalf("delivered %d", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback reading Completed blocked Deliver")
	}
	if want := []int{1, 0, 0, 0}; !reflect.DeepEqual(seen, want) {
		t.Errorf("counts seen from callbacks = %v, want %v", seen, want)
	}
}
