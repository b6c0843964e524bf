package ai

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLazyEmbedderInitializesOnce(t *testing.T) {
	var calls atomic.Int32
	lazy := Lazy(func(context.Context) (Embedder, error) {
		calls.Add(1)
		return EmbedderFunc(func(_ context.Context, text string) ([]float32, error) {
			return []float32{float32(len(text))}, nil
		}), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vec, err := lazy.Embed(context.Background(), "abc")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if len(vec) != 1 || vec[0] != 3 {
				t.Errorf("unexpected vector: %v", vec)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single initialization, got %d", got)
	}
}

func TestLazyEmbedderKeepsInitError(t *testing.T) {
	initErr := errors.New("model not found")
	var calls int
	lazy := Lazy(func(context.Context) (Embedder, error) {
		calls++
		return nil, initErr
	})

	for i := 0; i < 2; i++ {
		if _, err := lazy.Embed(context.Background(), "text"); !errors.Is(err, initErr) {
			t.Fatalf("expected init error, got %v", err)
		}
	}

	if calls != 1 {
		t.Fatalf("expected init to run once, got %d", calls)
	}
}
