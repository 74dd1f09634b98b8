package main

import (
	"os"
	"path/filepath"

	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
	flags "github.com/jessevdk/go-flags"
	. "gopkg.in/check.v1"
)

type ConfigSuite struct{}

var _ = Suite(&ConfigSuite{})

func (s *ConfigSuite) TestDefaults(c *C) {
	config, err := ParseConfig([]byte(`
daemon:
  host: 192.168.1.20
`))
	c.Assert(err, IsNil)
	c.Check(config.Name, Equals, "Irrigation Controller")
	c.Check(config.Daemon.Port, Equals, 4242)
	c.Check(config.Zones, Equals, 14)
	c.Check(config.DefaultDuration, Equals, 300)
	c.Check(config.Listen, Equals, ":8042")
	c.Check(config.NoZeroconf, Equals, false)
	c.Check(config.Check(), IsNil)

	zones := config.ZoneConfigs()
	c.Assert(zones, HasLen, 14)
	c.Check(zones[0], Equals, irrigation.ZoneConfig{
		Zone:            1,
		DefaultDuration: 300,
		Host:            "192.168.1.20",
		Port:            4242,
	})
	c.Check(zones[13].Zone, Equals, 14)
	c.Check(config.ZoneName(3), Equals, "Irrigation Controller Zone 3")
}

func (s *ConfigSuite) TestFullConfig(c *C) {
	config, err := ParseConfig([]byte(`
name: Garden
daemon:
  host: pi.local
  port: 5000
  token: s3cret
zones: 4
default-duration: 120
durations:
  2: 600
listen: 127.0.0.1:9000
no-zeroconf: true
`))
	c.Assert(err, IsNil)
	c.Assert(config.Check(), IsNil)
	c.Check(config.Listen, Equals, "127.0.0.1:9000")
	c.Check(config.NoZeroconf, Equals, true)

	zones := config.ZoneConfigs()
	c.Assert(zones, HasLen, 4)
	c.Check(zones[0].DefaultDuration, Equals, 120)
	c.Check(zones[1].DefaultDuration, Equals, 600)
	for _, z := range zones {
		c.Check(z.Address(), Equals, "pi.local:5000")
		c.Check(z.Token, Equals, "s3cret")
	}
}

func (s *ConfigSuite) TestUnknownKeysAreRejected(c *C) {
	_, err := ParseConfig([]byte("zone: 3\n"))
	c.Check(err, ErrorMatches, "(?s).*field zone not found.*")
}

func (s *ConfigSuite) TestCheck(c *C) {
	testdata := []struct {
		Text  string
		Error string
	}{
		{"zones: 2", "invalid config: Invalid zone definition '1': missing daemon host; Invalid zone definition '2': missing daemon host"},
		{"daemon: {host: a}\nzones: 0", `invalid zone count 0 \( should be positive \)`},
		{"daemon: {host: a}\nzones: 2\ndurations: {3: 10}", `Invalid zone definition '3': duration given for an undefined zone \( should be in \[1,2\] \)`},
		{"daemon: {host: a}\nzones: 1\ndurations: {1: -10}", `invalid config: Invalid zone definition '1': invalid default duration -10 \( should be positive \)`},
		{"daemon: {host: a, port: 0}\nzones: 1", "invalid config: Invalid zone definition '1': invalid daemon port 0"},
		{"daemon: {host: a}\nlisten: ''", "missing listen address"},
	}
	for _, d := range testdata {
		config, err := ParseConfig([]byte(d.Text))
		if c.Check(err, IsNil, Commentf("config: %s", d.Text)) == false {
			continue
		}
		c.Check(config.Check(), ErrorMatches, d.Error, Commentf("config: %s", d.Text))
	}
}

func (s *ConfigSuite) TestOpenConfigFromArg(c *C) {
	filename := filepath.Join(c.MkDir(), "bridge.yml")
	c.Assert(os.WriteFile(filename, []byte("daemon: {host: garden}\nzones: 3\n"), 0644), IsNil)

	config, err := OpenConfigFromArg(flags.Filename(filename))
	c.Assert(err, IsNil)
	c.Check(config.Daemon.Host, Equals, "garden")
	c.Check(config.Zones, Equals, 3)

	_, err = OpenConfig(filepath.Join(c.MkDir(), "missing.yml"))
	c.Check(os.IsNotExist(err), Equals, true)
}
