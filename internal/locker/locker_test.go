package locker

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryOrderLockerAcquireRelease(t *testing.T) {
	l := NewMemoryOrderLocker()
	ctx := context.Background()

	acquired, err := l.Acquire(ctx, "order-1")
	if err != nil || !acquired {
		t.Fatalf("Acquire() = %v, %v, want true, nil", acquired, err)
	}

	acquired, err = l.Acquire(ctx, "order-1")
	if err != nil || acquired {
		t.Fatalf("second Acquire() = %v, %v, want false, nil", acquired, err)
	}

	// a different order is unaffected
	acquired, err = l.Acquire(ctx, "order-2")
	if err != nil || !acquired {
		t.Fatalf("Acquire(order-2) = %v, %v, want true, nil", acquired, err)
	}

	if err := l.Release(ctx, "order-1"); err != nil {
		t.Fatal(err)
	}

	acquired, err = l.Acquire(ctx, "order-1")
	if err != nil || !acquired {
		t.Fatalf("Acquire() after Release() = %v, %v, want true, nil", acquired, err)
	}
}

func TestMemoryOrderLockerConcurrentAcquire(t *testing.T) {
	l := NewMemoryOrderLocker()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			acquired, err := l.Acquire(ctx, "order-1")
			if err != nil {
				t.Error(err)
				return
			}
			if acquired {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	if got := len(wins); got != 1 {
		t.Fatalf("%d workers acquired the lock, want exactly 1", got)
	}
}
