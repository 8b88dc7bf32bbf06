package parallel

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if got, want := pool.Workers(), runtime.GOMAXPROCS(0); got != want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", n, got, want)
		}
		pool.Close()
	}
}

func TestWorkerPool_Run(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 1000)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	if err := pool.Run(work); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counter.Load() != 1000 {
		t.Errorf("counter = %d, want 1000", counter.Load())
	}
}

func TestWorkerPool_RunEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()
	if err := pool.Run(nil); err != nil {
		t.Errorf("Run(nil) = %v", err)
	}
}

// A slow item on one worker does not hold back the rest of the batch.
func TestWorkerPool_RunStealsFromBusyWorker(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	var fast atomic.Int64
	work := make([]func(), 20)
	for i := range work {
		if i == 0 {
			work[i] = func() { time.Sleep(20 * time.Millisecond) }
			continue
		}
		work[i] = func() { fast.Add(1) }
	}
	if err := pool.Run(work); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fast.Load() != 19 {
		t.Errorf("fast items = %d, want 19", fast.Load())
	}
}

func TestWorkerPool_Range(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		n       int
	}{
		{"empty", 4, 0},
		{"fewer items than chunks", 4, 3},
		{"uneven", 3, 1001},
		{"single worker", 1, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.workers)
			defer pool.Close()

			hits := make([]atomic.Int32, tt.n)
			err := pool.Range(tt.n, func(lo, hi int) {
				for i := lo; i < hi; i++ {
					hits[i].Add(1)
				}
			})
			if err != nil {
				t.Fatalf("Range: %v", err)
			}
			for i := range hits {
				if hits[i].Load() != 1 {
					t.Fatalf("index %d visited %d times", i, hits[i].Load())
				}
			}
		})
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()
	if pool.IsRunning() {
		t.Error("pool running after Close")
	}
}

func TestWorkerPool_RunAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	ran := false
	err := pool.Run([]func(){func() { ran = true }})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Run after Close = %v, want ErrPoolClosed", err)
	}
	if ran {
		t.Error("work ran on a closed pool")
	}
}

func TestWorkerPool_NoGoroutineLeak(t *testing.T) {
	before := runtime.NumGoroutine()
	for range 10 {
		pool := NewWorkerPool(4)
		_ = pool.Range(100, func(int, int) {})
		pool.Close()
	}
	time.Sleep(10 * time.Millisecond)
	if after := runtime.NumGoroutine(); after > before+2 {
		t.Errorf("goroutines: before=%d after=%d", before, after)
	}
}

func BenchmarkWorkerPool_Range(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()
	var sink atomic.Int64
	b.ReportAllocs()
	for b.Loop() {
		_ = pool.Range(4096, func(lo, hi int) { sink.Add(int64(hi - lo)) })
	}
}
