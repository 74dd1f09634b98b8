package irrigation

import (
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	. "gopkg.in/check.v1"
)

type BroadcasterSuite struct {
	b    *stateBroadcaster
	hook *test.Hook
}

var _ = Suite(&BroadcasterSuite{})

func (s *BroadcasterSuite) SetUpTest(c *C) {
	s.b = newStateBroadcaster()
	_, s.hook = test.NewNullLogger()
	s.b.logger.Logger.AddHook(s.hook)
}

func (s *BroadcasterSuite) TearDownTest(c *C) {
	s.b.Close()
}

func (s *BroadcasterSuite) TestFanOut(c *C) {
	one := s.b.Register()
	two := s.b.Register()
	s.b.Publish(ZoneState{Zone: 2, Running: true, RemainingSeconds: 10})

	for _, ch := range []<-chan ZoneState{one, two} {
		st := receiveState(c, ch)
		c.Check(st.Zone, Equals, 2)
		c.Check(st.RemainingSeconds, Equals, 10)
	}

	s.b.Unregister(one)
	_, ok := <-one
	c.Check(ok, Equals, false)
	s.b.Publish(ZoneState{Zone: 3})
	c.Check(receiveState(c, two).Zone, Equals, 3)
}

func (s *BroadcasterSuite) TestSlowSubscriberDropsStates(c *C) {
	ch := s.b.Register()
	for i := 0; i < 40; i++ {
		s.b.Publish(ZoneState{Zone: 1, RemainingSeconds: i})
	}
	c.Check(len(ch), Equals, 32)
	entries := s.hook.AllEntries()
	c.Assert(len(entries), Equals, 8)
	for _, e := range entries {
		c.Check(e.Level, Equals, logrus.WarnLevel)
		c.Check(e.Message, Equals, "subscriber not ready, dropping state")
		c.Check(e.Data["domain"], Equals, "registry/broadcast")
	}
	c.Check(entries[0].Data["remaining"], Equals, 32)
}

func (s *BroadcasterSuite) TestCloseIsIdempotent(c *C) {
	ch := s.b.Register()
	s.b.Close()
	s.b.Close()
	_, ok := <-ch
	c.Check(ok, Equals, false)
	s.b.Publish(ZoneState{Zone: 1})
}
