package irrigation

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrControllerClosed = errors.New("zone controller closed")

// ZoneController owns the run state of a single zone. Start and Stop on
// the same zone are serialized; State never waits on the network.
type ZoneController interface {
	Config() ZoneConfig
	Start(ctx context.Context, seconds int) error
	Stop(ctx context.Context) error
	State() ZoneState
	Close() error
}

type statePublisher interface {
	Publish(ZoneState)
}

type zoneController struct {
	Period time.Duration

	config    ZoneConfig
	sender    Sender
	publisher statePublisher
	logger    *logrus.Entry

	// held for a whole Start or Stop, network round trip included
	opMx sync.Mutex

	mx         sync.Mutex
	running    bool
	remaining  int
	configured int
	updatedAt  time.Time
	starts     int
	startedAt  time.Time
	timer      *countdown
	closed     bool
}

func newZoneController(config ZoneConfig, sender Sender, publisher statePublisher) *zoneController {
	return &zoneController{
		Period:    time.Second,
		config:    config,
		sender:    sender,
		publisher: publisher,
		logger:    NewLogger(path.Join("zone", strconv.Itoa(config.Zone))),
		updatedAt: time.Now(),
	}
}

func (c *zoneController) Config() ZoneConfig {
	return c.config
}

func (c *zoneController) stateUnsafe() ZoneState {
	return ZoneState{
		Zone:                      c.config.Zone,
		Running:                   c.running,
		RemainingSeconds:          c.remaining,
		ConfiguredDurationSeconds: c.configured,
		UpdatedAt:                 c.updatedAt,
		Starts:                    c.starts,
		StartedAt:                 c.startedAt,
	}
}

func (c *zoneController) State() ZoneState {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.stateUnsafe()
}

func (c *zoneController) publishUnsafe() {
	c.updatedAt = time.Now()
	if c.publisher != nil {
		c.publisher.Publish(c.stateUnsafe())
	}
}

func (c *zoneController) cancelCountdownUnsafe() {
	if c.timer == nil {
		return
	}
	c.timer.Cancel()
	c.timer = nil
}

func (c *zoneController) installCountdownUnsafe() {
	c.cancelCountdownUnsafe()
	c.timer = startCountdown(c.Period, c.tick)
}

func (c *zoneController) tick(cd *countdown) bool {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.timer != cd || c.running == false {
		// replaced or cancelled while this tick was waiting for the lock
		return false
	}

	if c.remaining > 0 {
		c.remaining -= 1
	}
	if c.remaining > 0 {
		c.publishUnsafe()
		return true
	}

	c.running = false
	c.remaining = 0
	c.timer = nil
	c.publishUnsafe()
	c.logger.WithField("duration", c.configured).Info("run elapsed")
	return false
}

// begin cancels the live countdown before a command goes out.
func (c *zoneController) begin() (wasRunning bool, err error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed == true {
		return false, ErrControllerClosed
	}
	c.cancelCountdownUnsafe()
	return c.running, nil
}

func (c *zoneController) send(ctx context.Context, cmd Command) error {
	if err := c.sender.Send(ctx, cmd); err != nil {
		return fmt.Errorf("zone %d: %w", c.config.Zone, err)
	}
	return nil
}

func (c *zoneController) Start(ctx context.Context, seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("zone %d: %w %d", c.config.Zone, ErrInvalidDuration, seconds)
	}
	if seconds == 0 {
		return c.Stop(ctx)
	}

	c.opMx.Lock()
	defer c.opMx.Unlock()

	wasRunning, err := c.begin()
	if err != nil {
		return err
	}

	err = c.send(ctx, Command{Zone: c.config.Zone, Seconds: seconds, Token: c.config.Token})

	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed == true {
		return ErrControllerClosed
	}

	if err != nil {
		if wasRunning == true && c.remaining > 0 {
			c.installCountdownUnsafe()
		}
		c.logger.WithError(err).WithField("duration", seconds).Warn("could not start zone")
		return err
	}

	c.running = true
	c.remaining = seconds
	c.configured = seconds
	c.starts += 1
	c.startedAt = time.Now()
	c.installCountdownUnsafe()
	c.publishUnsafe()
	c.logger.WithFields(logrus.Fields{
		"duration": seconds,
		"replaced": wasRunning,
	}).Info("zone started")
	return nil
}

func (c *zoneController) Stop(ctx context.Context) error {
	c.opMx.Lock()
	defer c.opMx.Unlock()

	if _, err := c.begin(); err != nil {
		return err
	}

	err := c.send(ctx, StopCommand(c.config.Zone, c.config.Token))

	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed == true {
		return ErrControllerClosed
	}

	// the operator asked for off: local state follows even if the daemon
	// did not answer
	c.running = false
	c.remaining = 0
	c.publishUnsafe()

	if err != nil {
		c.logger.WithError(err).Warn("stop not acknowledged, zone marked off")
		return err
	}
	c.logger.Info("zone stopped")
	return nil
}

// Close cancels the countdown without telling the daemon, which stops
// the zone on its own timer.
func (c *zoneController) Close() error {
	c.mx.Lock()
	if c.closed == true {
		c.mx.Unlock()
		return fmt.Errorf("zone %d: already closed", c.config.Zone)
	}
	c.closed = true
	timer := c.timer
	c.cancelCountdownUnsafe()
	c.running = false
	c.remaining = 0
	c.mx.Unlock()

	if timer != nil {
		timer.Wait()
	}
	return nil
}
