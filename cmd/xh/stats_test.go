package main

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
)

// overloadPool accepts limit tasks, runs each on its own goroutine and
// then refuses further submissions.
type overloadPool struct {
	limit     int
	submitted int
}

func (p *overloadPool) Submit(task func()) error {
	if p.submitted == p.limit {
		return ants.ErrPoolOverload
	}
	p.submitted++
	go func() {
		time.Sleep(10 * time.Millisecond)
		task()
	}()
	return nil
}

func TestSubmitAllWaitsOnFailure(t *testing.T) {
	var done atomic.Int32
	pool := &overloadPool{limit: 3}
	err := submitAll(pool, 5, func(int) { done.Add(1) })
	if !errors.Is(err, ants.ErrPoolOverload) {
		t.Fatalf("err %v", err)
	}
	if got := done.Load(); got != 3 {
		t.Errorf("%d tasks finished before return, want 3", got)
	}
}

func TestSubmitAll(t *testing.T) {
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Release()
	out := make([]int, 6)
	if err := submitAll(pool, len(out), func(i int) { out[i] = i * i }); err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != i*i {
			t.Errorf("out[%d] = %d", i, v)
		}
	}
}
