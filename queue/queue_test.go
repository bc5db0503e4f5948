package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueue_ShedsOldestWhenOverfull(t *testing.T) {
	q := New[int](DefaultLimits())

	gate := make(chan struct{})
	var active, peak int32
	track := func(v int) func() (int, error) {
		return func() (int, error) {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			<-gate
			atomic.AddInt32(&active, -1)
			return v, nil
		}
	}

	// Occupy every slot so the next tasks stay pending.
	var blockers []<-chan Outcome[int]
	for i := 0; i < 4; i++ {
		blockers = append(blockers, q.Enqueue(track(-1)))
	}
	waitFor(t, func() bool { return q.Stats().Running == 4 })

	var chans []<-chan Outcome[int]
	for i := 0; i < 81; i++ {
		chans = append(chans, q.Enqueue(track(i)))
	}

	st := q.Stats()
	if st.Pending != 40 {
		t.Fatalf("Pending = %d, want 40", st.Pending)
	}
	if st.Shed != 41 {
		t.Fatalf("Shed = %d, want 41", st.Shed)
	}

	for i := 0; i < 41; i++ {
		select {
		case out := <-chans[i]:
			if !errors.Is(out.Err, ErrShed) {
				t.Fatalf("task %d: err = %v, want ErrShed", i, out.Err)
			}
		case <-time.After(time.Second):
			t.Fatalf("task %d was not rejected", i)
		}
	}

	close(gate)
	for _, ch := range blockers {
		<-ch
	}
	for i := 41; i < 81; i++ {
		select {
		case out := <-chans[i]:
			if out.Err != nil || out.Value != i {
				t.Fatalf("task %d: got (%d, %v)", i, out.Value, out.Err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("task %d never completed", i)
		}
	}

	if p := atomic.LoadInt32(&peak); p > 4 {
		t.Fatalf("peak concurrency = %d, want <= 4", p)
	}
}

func TestQueue_AdmitsInFIFOOrder(t *testing.T) {
	q := New[int](Limits{Concurrency: 1, MaxPending: 10, TrimTo: 5})

	var mu sync.Mutex
	var order []int
	var chans []<-chan Outcome[int]
	for i := 0; i < 6; i++ {
		i := i
		chans = append(chans, q.Enqueue(func() (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
	}
	for _, ch := range chans {
		<-ch
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("admission order = %v, want ascending", order)
		}
	}
}

func TestQueue_FailureDoesNotBlockOthers(t *testing.T) {
	q := New[string](Limits{Concurrency: 1})
	boom := errors.New("boom")

	failed := q.Enqueue(func() (string, error) { return "", boom })
	panicked := q.Enqueue(func() (string, error) { panic("bad provider") })
	ok := q.Enqueue(func() (string, error) { return "fine", nil })

	if out := <-failed; !errors.Is(out.Err, boom) {
		t.Fatalf("failed task err = %v", out.Err)
	}
	if out := <-panicked; out.Err == nil {
		t.Fatal("panicking task should report an error")
	}
	if out := <-ok; out.Err != nil || out.Value != "fine" {
		t.Fatalf("ok task = (%q, %v)", out.Value, out.Err)
	}
	if st := q.Stats(); st.Running != 0 || st.Pending != 0 {
		t.Fatalf("Stats() = %+v, want idle", st)
	}
}

func TestQueue_DoStopsWaitingOnCancel(t *testing.T) {
	q := New[int](Limits{Concurrency: 1})
	release := make(chan struct{})
	defer close(release)
	q.Enqueue(func() (int, error) { <-release; return 0, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Do(ctx, func() (int, error) { return 1, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() err = %v, want deadline exceeded", err)
	}
}

func TestLimits_Normalized(t *testing.T) {
	l := Limits{}.normalized()
	if l != DefaultLimits() {
		t.Fatalf("normalized() = %+v, want defaults", l)
	}
	l = Limits{Concurrency: 2, MaxPending: 10, TrimTo: 50}.normalized()
	if l.TrimTo != 5 {
		t.Fatalf("TrimTo = %d, want 5", l.TrimTo)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
