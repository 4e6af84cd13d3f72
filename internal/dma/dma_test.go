package dma

import (
	"bytes"
	"sync"
	"testing"
)

func newTestEngine() *Engine {
	arena := make([]byte, 4096)
	return NewEngine(0x1000_0000, arena, nil)
}

func TestSubmitRejectsInvalidArguments(t *testing.T) {
	e := newTestEngine()
	cb := func(int, any) {}

	cases := []struct {
		name     string
		dst, src []byte
		cb       Callback
	}{
		{"empty src", make([]byte, 4), nil, cb},
		{"empty dst", nil, make([]byte, 4), cb},
		{"short dst", make([]byte, 2), make([]byte, 4), cb},
		{"nil callback", make([]byte, 4), make([]byte, 4), nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := e.Submit(c.dst, c.src, c.cb, nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSubmitPollRoundTrip(t *testing.T) {
	e := newTestEngine()
	src := []byte("hello dma")
	dst := make([]byte, len(src))

	var wg sync.WaitGroup
	wg.Add(1)
	var gotStatus int
	if err := e.Submit(dst, src, func(status int, user any) {
		gotStatus = status
		wg.Done()
	}, "tag"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if n := e.Pending(); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}

	if n := e.Poll(); n != 1 {
		t.Fatalf("Poll completed %d, want 1", n)
	}
	wg.Wait()

	if gotStatus != 0 {
		t.Fatalf("status = %d, want 0", gotStatus)
	}
	if !bytes.Equal(dst, src) {
		t.Fatalf("dst = %q, want %q", dst, src)
	}
	if n := e.Pending(); n != 0 {
		t.Fatalf("pending after poll = %d, want 0", n)
	}
}

func TestPollDrainsFIFOOrder(t *testing.T) {
	e := newTestEngine()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		src := []byte{byte(i)}
		dst := make([]byte, 1)
		if err := e.Submit(dst, src, func(int, any) { order = append(order, i) }, nil); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	if n := e.Poll(); n != 3 {
		t.Fatalf("Poll completed %d, want 3", n)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("completion order = %v, want FIFO 0,1,2", order)
		}
	}
}

func TestArenaExhaustionReturnsError(t *testing.T) {
	arena := make([]byte, descriptorSize) // room for exactly one descriptor
	e := NewEngine(0x2000_0000, arena, nil)
	src := []byte{1}
	dst := make([]byte, 1)
	if err := e.Submit(dst, src, func(int, any) {}, nil); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := e.Submit(dst, src, func(int, any) {}, nil); err == nil {
		t.Fatalf("expected arena exhaustion error on second submit")
	}
}
