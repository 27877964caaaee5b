package bus

import "context"

// Memory is an in-process loopback bus.
type Memory struct {
	frames chan Frame
}

func NewMemory() *Memory {
	return &Memory{frames: make(chan Frame, 256)}
}

func (m *Memory) Publish(ctx context.Context, f Frame) error {
	select {
	case m.frames <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Run(ctx context.Context, h Handler) {
	for {
		select {
		case f := <-m.frames:
			h(f)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Memory) Close() error { return nil }
