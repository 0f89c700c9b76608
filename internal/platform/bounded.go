package platform

import (
	"context"
	"errors"
	"time"
)

// Observer is told about every compositor call made through a bounded
// directory.
type Observer func(backend, op string, elapsed time.Duration, err error)

type bounded struct {
	inner   Directory
	timeout time.Duration
	observe Observer
}

// Bounded wraps dir so that each call gets its own deadline and any failure
// surfaces as a *CompositorError. observe may be nil.
func Bounded(dir Directory, timeout time.Duration, observe Observer) Directory {
	return &bounded{inner: dir, timeout: timeout, observe: observe}
}

func (b *bounded) Name() string { return b.inner.Name() }

func (b *bounded) ListWindows(ctx context.Context) ([]Window, error) {
	return call(ctx, b, "list", b.inner.ListWindows)
}

func (b *bounded) Focus(ctx context.Context, addr Address) error {
	_, err := call(ctx, b, "focus", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.inner.Focus(ctx, addr)
	})
	return err
}

func (b *bounded) Close(ctx context.Context, addr Address) error {
	_, err := call(ctx, b, "close", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.inner.Close(ctx, addr)
	})
	return err
}

func (b *bounded) CursorPosition(ctx context.Context) (Point, error) {
	return call(ctx, b, "cursor", b.inner.CursorPosition)
}

// call runs fn in its own goroutine so backends without context support
// (X11) are still abandoned at the deadline.
func call[T any](ctx context.Context, b *bounded, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	start := time.Now()
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	if b.observe != nil {
		b.observe(b.inner.Name(), op, time.Since(start), r.err)
	}
	if r.err != nil {
		var cerr *CompositorError
		if errors.As(r.err, &cerr) {
			return r.v, r.err
		}
		return r.v, &CompositorError{Backend: b.inner.Name(), Op: op, Err: r.err}
	}
	return r.v, nil
}
