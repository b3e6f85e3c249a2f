package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Memory is the native in-process Engine. It is stateless apart from the
// capability gate, so a single instance may serve many runs.
type Memory struct {
	seats chan struct{}
}

// MemoryOption configures a Memory engine.
type MemoryOption func(*Memory)

// WithSeats limits how many runs may hold the raster-analysis capability at
// once. Zero seats makes Checkout always fail, which mirrors an engine
// without the required license.
func WithSeats(n int) MemoryOption {
	return func(m *Memory) {
		m.seats = make(chan struct{}, n)
		for i := 0; i < n; i++ {
			m.seats <- struct{}{}
		}
	}
}

// NewMemory creates an in-process engine. By default the capability is
// always available.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Checkout implements Engine. Acquisition never blocks: if no seat is free
// the capability is reported unavailable, matching the fail-fast model.
func (m *Memory) Checkout(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "engine: checkout")
	}
	if m.seats == nil {
		return func() {}, nil
	}

	select {
	case <-m.seats:
	default:
		return nil, eris.New("engine: no raster analysis seat available")
	}

	var released bool
	return func() {
		if released {
			return
		}
		released = true
		m.seats <- struct{}{}
		zap.L().Debug("engine: capability released")
	}, nil
}
