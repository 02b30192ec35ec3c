package container

import (
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/wippyai/emplace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestArc_ConcurrentCloneClose(t *testing.T) {
	var destroyed int
	var mu sync.Mutex

	root, err := NewArc(emplace.AsPin(resInit(1, &destroyed, &mu)))
	if err != nil {
		t.Fatal(err)
	}

	const workers = 32
	clones := make([]*Arc[res], workers)
	for i := range clones {
		clones[i] = root.Clone()
		if clones[i] == nil {
			t.Fatal("Clone failed")
		}
	}

	var wg sync.WaitGroup
	for _, c := range clones {
		wg.Add(1)
		go func(c *Arc[res]) {
			defer wg.Done()
			if c.Get().n != 1 {
				t.Error("clone read wrong value")
			}
			if err := c.Close(); err != nil {
				t.Errorf("Close failed: %v", err)
			}
		}(c)
	}
	wg.Wait()

	if destroyed != 0 {
		t.Fatal("destroyed while root was live")
	}
	if err := root.Close(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if destroyed != 1 {
		t.Fatalf("destructor ran %d times, want exactly 1", destroyed)
	}
}

func TestArc_DoubleCloseOneHandle(t *testing.T) {
	var destroyed int
	var mu sync.Mutex

	a, err := NewArc(emplace.AsPin(resInit(1, &destroyed, &mu)))
	if err != nil {
		t.Fatal(err)
	}
	b := a.Clone()

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	// A second Close on the same handle must not release b's reference.
	if err := a.Close(); err == nil {
		t.Fatal("second Close should fail")
	}
	if destroyed != 0 {
		t.Fatal("value destroyed while b still owns a reference")
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if destroyed != 1 {
		t.Fatalf("destructor ran %d times", destroyed)
	}
}
