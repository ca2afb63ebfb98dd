package game

import (
	"sync"
	"time"
)

// CancelHandle cancels a scheduled timer. Cancel is idempotent and
// best-effort: a message that has already entered the mailbox is not
// recalled (spec.md §4.5).
type CancelHandle interface {
	Cancel()
}

// TimerService schedules cancellable one-shot timers that, on fire,
// deliver exactly one message by invoking fire(). It runs no user code
// beyond that single call (spec.md §4.5, §5).
type TimerService interface {
	Schedule(d time.Duration, fire func()) CancelHandle
}

// SystemTimerService is the production TimerService, built on
// time.AfterFunc. A single instance is shared by every room in the
// process (spec.md §5's "shared across rooms, must be safe for
// parallel access").
type SystemTimerService struct{}

func NewSystemTimerService() SystemTimerService { return SystemTimerService{} }

func (SystemTimerService) Schedule(d time.Duration, fire func()) CancelHandle {
	h := &timerHandle{}
	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		cancelled := h.cancelled
		h.mu.Unlock()
		if !cancelled {
			fire()
		}
	})
	return h
}

type timerHandle struct {
	mu        sync.Mutex
	cancelled bool
	timer     *time.Timer
}

func (h *timerHandle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.timer.Stop()
}
