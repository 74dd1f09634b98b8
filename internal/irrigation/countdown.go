package irrigation

import (
	"sync"
	"time"
)

// countdown is the handle on a zone's ticking goroutine. A controller
// holds at most one.
type countdown struct {
	quit, done chan struct{}
	once       sync.Once
}

// startCountdown calls tick every period until tick returns false or the
// countdown is cancelled.
func startCountdown(period time.Duration, tick func(*countdown) bool) *countdown {
	cd := &countdown{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go cd.run(period, tick)
	return cd
}

func (cd *countdown) run(period time.Duration, tick func(*countdown) bool) {
	defer close(cd.done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-cd.quit:
			return
		case <-ticker.C:
			if tick(cd) == false {
				return
			}
		}
	}
}

// Cancel stops future ticks. It is a no-op on a finished countdown.
func (cd *countdown) Cancel() {
	cd.once.Do(func() { close(cd.quit) })
}

func (cd *countdown) Wait() {
	<-cd.done
}
