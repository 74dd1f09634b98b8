package irrigation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	. "gopkg.in/check.v1"
)

type DispatcherSuite struct {
	daemon     *fakeDaemon
	registry   *Registry
	dispatcher *Dispatcher
}

var _ = Suite(&DispatcherSuite{})

func (s *DispatcherSuite) setUp(c *C, reply func(string) string, token string) {
	s.setUpZones(c, reply, token, 3, 300)
}

func (s *DispatcherSuite) setUpZones(c *C, reply func(string) string, token string, zones, duration int) {
	s.daemon = newFakeDaemon(c, reply)
	var err error
	s.registry, err = Configure(SequentialZones(zones, "127.0.0.1", s.daemon.Port(), token, duration),
		WithPeriod(testPeriod))
	c.Assert(err, IsNil)
	s.dispatcher = NewDispatcher(s.registry)
}

func (s *DispatcherSuite) TearDownTest(c *C) {
	if s.registry != nil {
		s.registry.Close()
		s.registry = nil
	}
	if s.daemon != nil {
		s.daemon.Close()
		s.daemon = nil
	}
}

func (s *DispatcherSuite) TestRunUsesDefaultDuration(c *C) {
	s.setUp(c, alwaysOK, "")
	ctx := context.Background()

	c.Check(s.dispatcher.Run(ctx, 3), IsNil)
	c.Check(s.dispatcher.RunFor(ctx, 2, 5), IsNil)
	c.Check(s.dispatcher.RunLevel(ctx, 1, 128), IsNil)
	c.Check(s.dispatcher.RunLevel(ctx, 1, 255), IsNil)
	c.Check(s.dispatcher.Stop(ctx, 3), IsNil)

	c.Check(s.daemon.Lines(), DeepEquals, []string{
		"ZONE=3 TIME=300\n",
		"ZONE=2 TIME=5\n",
		"ZONE=1 TIME=150\n",
		"ZONE=1 TIME=300\n",
		"ZONE=3 TIME=0\n",
	})

	st, err := s.registry.State(1)
	c.Check(err, IsNil)
	c.Check(st.Running, Equals, true)
	c.Check(st.ConfiguredDurationSeconds, Equals, 300)
	st, _ = s.registry.State(3)
	c.Check(st.Running, Equals, false)
}

func (s *DispatcherSuite) TestTokenIsSent(c *C) {
	s.setUp(c, alwaysOK, "s3cret")
	c.Check(s.dispatcher.RunFor(context.Background(), 1, 60), IsNil)
	c.Check(s.daemon.Lines(), DeepEquals, []string{"ZONE=1 TIME=60 TOKEN=s3cret\n"})
}

func (s *DispatcherSuite) TestUnknownZoneSendsNothing(c *C) {
	s.setUp(c, alwaysOK, "")
	ctx := context.Background()
	for _, err := range []error{
		s.dispatcher.Run(ctx, 99),
		s.dispatcher.RunFor(ctx, 0, 10),
		s.dispatcher.RunLevel(ctx, 4, 12),
		s.dispatcher.Stop(ctx, 99),
	} {
		c.Check(errors.Is(err, ErrUnknownZone), Equals, true)
	}
	c.Check(s.daemon.Lines(), HasLen, 0)
}

func (s *DispatcherSuite) TestLevelZeroStops(c *C) {
	s.setUp(c, alwaysOK, "")
	c.Check(s.dispatcher.RunLevel(context.Background(), 2, 0), IsNil)
	c.Check(s.daemon.Lines(), DeepEquals, []string{"ZONE=2 TIME=0\n"})
}

func (s *DispatcherSuite) TestRunElapsesEndToEnd(c *C) {
	s.setUp(c, alwaysOK, "")
	ch := s.registry.Subscribe()
	c.Assert(s.dispatcher.RunFor(context.Background(), 2, 3), IsNil)

	var remaining []int
	for {
		st := receiveState(c, ch)
		c.Check(st.Zone, Equals, 2)
		if st.Running == false {
			break
		}
		remaining = append(remaining, st.RemainingSeconds)
	}
	c.Check(remaining, DeepEquals, []int{3, 2, 1})
	// the daemon turns the zone off on its own, nothing else is sent
	c.Check(s.daemon.Lines(), DeepEquals, []string{"ZONE=2 TIME=3\n"})
}

func (s *DispatcherSuite) TestRejectedRunLeavesZoneIdle(c *C) {
	s.setUp(c, func(string) string { return "ERR zone disabled\n" }, "")
	err := s.dispatcher.Run(context.Background(), 1)
	c.Check(err, ErrorMatches, "zone 1: daemon rejected command: 'ERR zone disabled'")
	st, _ := s.registry.State(1)
	c.Check(st.Running, Equals, false)
}

func (s *DispatcherSuite) TestStopAllReportsEveryFailure(c *C) {
	s.setUp(c, func(line string) string {
		if line == "ZONE=2 TIME=0\n" {
			return "ERR stuck valve\n"
		}
		return "OK\n"
	}, "")
	ctx := context.Background()
	for _, z := range s.registry.Zones() {
		c.Assert(s.dispatcher.RunFor(ctx, z, 100), IsNil)
	}

	err := s.dispatcher.StopAll(ctx)
	c.Assert(err, NotNil)
	c.Check(err, ErrorMatches, "zone 2: daemon rejected command: 'ERR stuck valve'")
	var rejected *DaemonRejectedError
	c.Check(errors.As(err, &rejected), Equals, true)

	lines := s.daemon.Lines()
	c.Check(lines[len(lines)-3:], DeepEquals, []string{
		"ZONE=1 TIME=0\n",
		"ZONE=2 TIME=0\n",
		"ZONE=3 TIME=0\n",
	})
	for _, st := range s.registry.States() {
		c.Check(st.Running, Equals, false, Commentf("zone %d", st.Zone))
	}
}

func (s *DispatcherSuite) TestStopAllUnreachableDaemon(c *C) {
	s.setUp(c, alwaysOK, "")
	s.daemon.Close()
	s.daemon = nil

	err := s.dispatcher.StopAll(context.Background())
	c.Assert(err, NotNil)
	for _, z := range []string{"zone 1: ", "zone 2: ", "zone 3: "} {
		c.Check(strings.Contains(err.Error(), z), Equals, true)
	}
	var nerr *NetworkError
	c.Check(errors.As(err, &nerr), Equals, true)
}

func (s *DispatcherSuite) TestConcurrentCommandsStayConsistent(c *C) {
	s.setUp(c, alwaysOK, "")
	ctx := context.Background()
	done := make(chan error, 20)
	for i := 0; i < 10; i++ {
		go func(i int) { done <- s.dispatcher.RunFor(ctx, 1, 100+i) }(i)
		go func() { done <- s.dispatcher.Stop(ctx, 1) }()
	}
	for i := 0; i < 20; i++ {
		select {
		case err := <-done:
			c.Check(err, IsNil)
		case <-time.After(5 * time.Second):
			c.Fatalf("commands did not complete")
		}
	}
	zc, err := s.registry.Lookup(1)
	c.Assert(err, IsNil)
	ctrl := zc.(*zoneController)
	ctrl.mx.Lock()
	defer ctrl.mx.Unlock()
	c.Check(ctrl.running == (ctrl.timer != nil), Equals, true)
}

func waitOff(c *C, ch <-chan ZoneState, zone int) {
	for {
		st := receiveState(c, ch)
		if st.Zone == zone && st.Running == false {
			return
		}
	}
}

func (s *DispatcherSuite) TestRunElapseRunStopSequence(c *C) {
	s.setUpZones(c, alwaysOK, "", 2, 5)
	ctx := context.Background()
	ch := s.registry.Subscribe()

	c.Assert(s.dispatcher.Run(ctx, 1), IsNil)
	waitOff(c, ch, 1)
	st, _ := s.registry.State(1)
	c.Check(st.Running, Equals, false)
	c.Check(st.RemainingSeconds, Equals, 0)

	c.Assert(s.dispatcher.Run(ctx, 1), IsNil)
	st, _ = s.registry.State(1)
	c.Check(st.Running, Equals, true)
	c.Check(st.RemainingSeconds > 0, Equals, true)

	c.Assert(s.dispatcher.Stop(ctx, 1), IsNil)
	st, _ = s.registry.State(1)
	c.Check(st.Running, Equals, false)
	c.Check(st.RemainingSeconds, Equals, 0)

	c.Check(s.daemon.Lines(), DeepEquals, []string{
		"ZONE=1 TIME=5\n",
		"ZONE=1 TIME=5\n",
		"ZONE=1 TIME=0\n",
	})
	st, _ = s.registry.State(2)
	c.Check(st.Running, Equals, false)
}

func (s *DispatcherSuite) TestZeroDurationIsAStop(c *C) {
	s.setUp(c, alwaysOK, "tok")
	ctx := context.Background()
	c.Assert(s.dispatcher.RunFor(ctx, 2, 0), IsNil)
	c.Assert(s.dispatcher.Stop(ctx, 2), IsNil)
	lines := s.daemon.Lines()
	c.Assert(lines, HasLen, 2)
	c.Check(lines[0], Equals, "ZONE=2 TIME=0 TOKEN=tok\n")
	c.Check(lines[0], Equals, lines[1])
}

func (s *DispatcherSuite) TestStopAllOnFullController(c *C) {
	s.setUpZones(c, alwaysOK, "", DefaultZones, DefaultDuration)
	c.Assert(s.dispatcher.StopAll(context.Background()), IsNil)

	expected := make([]string, 0, DefaultZones)
	for z := 1; z <= DefaultZones; z++ {
		expected = append(expected, fmt.Sprintf("ZONE=%d TIME=0\n", z))
	}
	c.Check(s.daemon.Lines(), DeepEquals, expected)
	for _, st := range s.registry.States() {
		c.Check(st.Running, Equals, false)
	}
}
