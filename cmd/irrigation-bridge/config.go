package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/adrg/xdg"
	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
	flags "github.com/jessevdk/go-flags"
	yaml "gopkg.in/yaml.v2"
)

type DaemonDefinition struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

type Config struct {
	Name            string           `yaml:"name"`
	Daemon          DaemonDefinition `yaml:"daemon"`
	Zones           int              `yaml:"zones"`
	DefaultDuration int              `yaml:"default-duration"`
	Durations       map[int]int      `yaml:"durations"`
	Listen          string           `yaml:"listen"`
	NoZeroconf      bool             `yaml:"no-zeroconf"`
}

const (
	DEFAULT_CONFIG_PATH = "/etc/default/irrigation.yml"
	DEFAULT_NAME        = "Irrigation Controller"
	DEFAULT_LISTEN      = ":8042"

	xdgConfigPath = "irrigation/bridge.yml"
)

func DefaultConfig() Config {
	return Config{
		Name: DEFAULT_NAME,
		Daemon: DaemonDefinition{
			Port: irrigation.DefaultPort,
		},
		Zones:           irrigation.DefaultZones,
		DefaultDuration: irrigation.DefaultDuration,
		Listen:          DEFAULT_LISTEN,
	}
}

// OpenConfigFromArg opens the file given on the command line, or the
// user's xdg config, or the system wide default.
func OpenConfigFromArg(option flags.Filename) (*Config, error) {
	if len(option) > 0 {
		return OpenConfig(string(option))
	}
	if configPath, err := xdg.SearchConfigFile(xdgConfigPath); err == nil {
		return OpenConfig(configPath)
	}
	return OpenConfig(DEFAULT_CONFIG_PATH)
}

func OpenConfig(filename string) (*Config, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(buf)
}

// ParseConfig reads a YAML config. Missing keys keep their default value.
func ParseConfig(buf []byte) (*Config, error) {
	c := DefaultConfig()
	if err := yaml.UnmarshalStrict(buf, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c Config) checkDurations() []error {
	zones := make([]int, 0, len(c.Durations))
	for z := range c.Durations {
		zones = append(zones, z)
	}
	sort.Ints(zones)

	var errs []error
	for _, z := range zones {
		if z < 1 || z > c.Zones {
			errs = append(errs, fmt.Errorf("Invalid zone definition '%d': duration given for an undefined zone ( should be in [1,%d] )", z, c.Zones))
		}
	}
	return errs
}

func (c Config) Check() error {
	var errs []error
	if len(c.Listen) == 0 {
		errs = append(errs, errors.New("missing listen address"))
	}
	if c.Zones < 1 {
		errs = append(errs, fmt.Errorf("invalid zone count %d ( should be positive )", c.Zones))
	} else {
		errs = append(errs, c.checkDurations()...)
		errs = append(errs, irrigation.CheckZoneConfigs(c.ZoneConfigs()))
	}
	return errors.Join(errs...)
}

// ZoneConfigs expands the config into zones 1..Zones, applying per zone
// duration overrides.
func (c Config) ZoneConfigs() []irrigation.ZoneConfig {
	res := irrigation.SequentialZones(c.Zones, c.Daemon.Host, c.Daemon.Port, c.Daemon.Token, c.DefaultDuration)
	for i := range res {
		if d, ok := c.Durations[res[i].Zone]; ok == true {
			res[i].DefaultDuration = d
		}
	}
	return res
}

func (c Config) ZoneName(zone int) string {
	return fmt.Sprintf("%s Zone %d", c.Name, zone)
}
