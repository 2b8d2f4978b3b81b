package game

import (
	"sync"
	"time"
)

// Countdown emits onTick(total) immediately, then one tick every step
// with the remaining time decremented and clamped at zero. The zero tick
// is emitted and the countdown stops on its own. The returned cancel
// stops emission early; ticks already fired stay fired.
//
// onTick runs on the countdown's own goroutine (after the first,
// synchronous tick); callers synchronize their own state.
func Countdown(total, step time.Duration, onTick func(remaining time.Duration)) (cancel func()) {
	if step <= 0 {
		step = time.Second
	}

	stop := make(chan struct{})
	var once sync.Once
	cancel = func() { once.Do(func() { close(stop) }) }

	remaining := total
	if remaining < 0 {
		remaining = 0
	}
	onTick(remaining)
	if remaining == 0 {
		return cancel
	}

	go func() {
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				remaining -= step
				if remaining < 0 {
					remaining = 0
				}
				onTick(remaining)
				if remaining == 0 {
					return
				}
			}
		}
	}()

	return cancel
}
