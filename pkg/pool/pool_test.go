package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDegenerateModeRunsInline(t *testing.T) {
	p := New(0, nil)
	defer p.Close()

	ran := false
	task := Submit(p, func() (int, error) {
		ran = true
		return 42, nil
	})

	// In degenerate mode the task must have executed before Submit returned.
	if !ran {
		t.Fatal("task did not run synchronously in degenerate mode")
	}
	if p.ThreadCount() != 0 {
		t.Errorf("ThreadCount() = %d, want 0", p.ThreadCount())
	}

	v, err := task.Result()
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	if v != 42 {
		t.Errorf("Result() = %d, want 42", v)
	}
}

func TestThreadCountBound(t *testing.T) {
	const maxWorkers = 4
	const jobs = 100

	p := New(maxWorkers, nil)
	defer p.Close()

	tasks := make([]*Task[int], 0, jobs)
	for i := 0; i < jobs; i++ {
		i := i
		tasks = append(tasks, Submit(p, func() (int, error) {
			return i, nil
		}))
	}

	for i, task := range tasks {
		v, err := task.Result()
		if err != nil {
			t.Fatalf("task %d failed: %v", i, err)
		}
		if v != i {
			t.Errorf("task %d returned %d", i, v)
		}
	}

	if got := p.ThreadCount(); got > maxWorkers {
		t.Errorf("ThreadCount() = %d, want <= %d", got, maxWorkers)
	}
	if got := p.ThreadCount(); got < 1 {
		t.Errorf("ThreadCount() = %d, want >= 1", got)
	}
}

func TestFIFODequeueOrder(t *testing.T) {
	// A single worker makes dequeue order directly observable.
	p := New(1, nil)

	var mu sync.Mutex
	var observed []int

	const jobs = 50
	tasks := make([]*Task[struct{}], 0, jobs)
	for i := 0; i < jobs; i++ {
		i := i
		tasks = append(tasks, Submit(p, func() (struct{}, error) {
			mu.Lock()
			observed = append(observed, i)
			mu.Unlock()
			return struct{}{}, nil
		}))
	}
	for _, task := range tasks {
		if _, err := task.Result(); err != nil {
			t.Fatalf("task failed: %v", err)
		}
	}
	p.Close()

	if len(observed) != jobs {
		t.Fatalf("observed %d executions, want %d", len(observed), jobs)
	}
	for i, v := range observed {
		if v != i {
			t.Fatalf("execution order broken at %d: got task %d", i, v)
		}
	}
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	p := New(1, nil)
	defer p.Close()

	bad := Submit(p, func() (int, error) {
		panic("boom")
	})
	good := Submit(p, func() (int, error) {
		return 7, nil
	})

	if _, err := bad.Result(); err == nil {
		t.Error("panicking task returned nil error")
	}

	v, err := good.Result()
	if err != nil {
		t.Fatalf("task after panic failed: %v", err)
	}
	if v != 7 {
		t.Errorf("task after panic returned %d, want 7", v)
	}
}

func TestErrorPropagation(t *testing.T) {
	p := New(2, nil)
	defer p.Close()

	want := errors.New("parse failed")
	task := Submit(p, func() (string, error) {
		return "", want
	})

	if _, err := task.Result(); !errors.Is(err, want) {
		t.Errorf("Result() error = %v, want %v", err, want)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(2, nil)
	p.Close()

	task := Submit(p, func() (int, error) {
		t.Error("task ran on closed pool")
		return 0, nil
	})

	if _, err := task.Result(); !errors.Is(err, ErrClosed) {
		t.Errorf("Result() error = %v, want %v", err, ErrClosed)
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	p := New(1, nil)

	var mu sync.Mutex
	done := 0

	const jobs = 20
	tasks := make([]*Task[struct{}], 0, jobs)
	for i := 0; i < jobs; i++ {
		tasks = append(tasks, Submit(p, func() (struct{}, error) {
			time.Sleep(time.Millisecond)
			mu.Lock()
			done++
			mu.Unlock()
			return struct{}{}, nil
		}))
	}

	// Close must not drop anything still queued.
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	if done != jobs {
		t.Errorf("completed %d tasks after Close, want %d", done, jobs)
	}
}

func TestResultContext(t *testing.T) {
	p := New(1, nil)
	defer p.Close()

	release := make(chan struct{})
	task := Submit(p, func() (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := task.ResultContext(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ResultContext() error = %v, want context.Canceled", err)
	}

	close(release)
	if v, err := task.Result(); err != nil || v != 1 {
		t.Errorf("Result() = %d, %v; want 1, nil", v, err)
	}
}
