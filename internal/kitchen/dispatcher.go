package kitchen

import (
	"context"

	"github.com/rs/zerolog"
)

// Dispatcher decides on which goroutine listener callbacks run.
type Dispatcher interface {
	Dispatch(fn func())
}

// InlineDispatcher runs callbacks on the publishing goroutine.
type InlineDispatcher struct{}

func (InlineDispatcher) Dispatch(fn func()) {
	fn()
}

// EventLoop runs callbacks one at a time on the goroutine that calls Run, the
// way a UI thread would. Dispatch never blocks: when the mailbox is full the
// callback is dropped and consumers catch up on their next resync.
type EventLoop struct {
	mailbox chan func()
	logger  zerolog.Logger
}

func NewEventLoop(size int, logger zerolog.Logger) *EventLoop {
	if size < 1 {
		size = 1
	}
	return &EventLoop{
		mailbox: make(chan func(), size),
		logger:  logger.With().Str("component", "event_loop").Logger(),
	}
}

func (l *EventLoop) Dispatch(fn func()) {
	select {
	case l.mailbox <- fn:
	default:
		l.logger.Warn().Int("capacity", cap(l.mailbox)).Msg("mailbox full, dropping callback")
	}
}

// Run drains the mailbox until ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.mailbox:
			l.invoke(fn)
		}
	}
}

func (l *EventLoop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("listener panicked")
		}
	}()
	fn()
}
