package irrigation

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type stateBroadcaster struct {
	mx       sync.RWMutex
	channels []chan ZoneState
	closed   bool
	logger   *logrus.Entry
}

func newStateBroadcaster() *stateBroadcaster {
	return &stateBroadcaster{
		logger: NewLogger("registry/broadcast"),
	}
}

func (b *stateBroadcaster) Register() <-chan ZoneState {
	b.mx.Lock()
	defer b.mx.Unlock()

	res := make(chan ZoneState, 32)
	if b.closed == true {
		close(res)
		return res
	}
	b.channels = append(b.channels, res)
	return res
}

func (b *stateBroadcaster) Unregister(ch <-chan ZoneState) {
	b.mx.Lock()
	defer b.mx.Unlock()

	for i, c := range b.channels {
		if c != ch {
			continue
		}
		close(c)
		b.channels = append(b.channels[:i], b.channels[i+1:]...)
		return
	}
}

func (b *stateBroadcaster) nonBlockingSend(s ZoneState, c chan<- ZoneState) {
	select {
	case c <- s:
	default:
		b.logger.WithFields(logrus.Fields{
			"zone":      s.Zone,
			"running":   s.Running,
			"remaining": s.RemainingSeconds,
		}).Warn("subscriber not ready, dropping state")
	}
}

func (b *stateBroadcaster) Publish(s ZoneState) {
	b.mx.RLock()
	defer b.mx.RUnlock()

	for _, c := range b.channels {
		b.nonBlockingSend(s, c)
	}
}

func (b *stateBroadcaster) Close() {
	b.mx.Lock()
	defer b.mx.Unlock()

	if b.closed == true {
		return
	}
	for _, c := range b.channels {
		close(c)
	}
	b.channels = nil
	b.closed = true
}
