package irrigation

import (
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultZones    = 14
	DefaultDuration = 300
)

// ZoneConfig describes one zone. It is immutable once a Registry is
// built from it.
type ZoneConfig struct {
	Zone            int
	DefaultDuration int
	Host            string
	Port            int
	Token           string
}

func (c ZoneConfig) Address() string {
	return DaemonAddress(c.Host, c.Port)
}

func (c ZoneConfig) check() []string {
	var reasons []string
	invalid := func(format string, args ...interface{}) {
		reasons = append(reasons, fmt.Sprintf("Invalid zone definition '%d': ", c.Zone)+fmt.Sprintf(format, args...))
	}
	if c.Zone < 1 {
		invalid("zone number should be positive")
	}
	if c.DefaultDuration < 1 {
		invalid("invalid default duration %d ( should be positive )", c.DefaultDuration)
	}
	if len(c.Host) == 0 {
		invalid("missing daemon host")
	}
	if c.Port < 1 || c.Port > 65535 {
		invalid("invalid daemon port %d", c.Port)
	}
	if strings.ContainsAny(c.Token, " \t\r\n") {
		invalid("token must not contain whitespace")
	}
	return reasons
}

// CheckZoneConfigs validates a full zone list: at least one zone, unique
// zone numbers and valid fields.
func CheckZoneConfigs(zones []ZoneConfig) error {
	if len(zones) == 0 {
		return &InvalidConfigError{Reasons: []string{"at least one zone is required"}}
	}
	var reasons []string
	seen := make(map[int]bool, len(zones))
	for _, z := range zones {
		reasons = append(reasons, z.check()...)
		if seen[z.Zone] == true {
			reasons = append(reasons, fmt.Sprintf("Invalid zone definition '%d': zone is defined more than once", z.Zone))
		}
		seen[z.Zone] = true
	}
	if len(reasons) > 0 {
		return &InvalidConfigError{Reasons: reasons}
	}
	return nil
}

// SequentialZones builds the zone list 1..n sharing the same daemon.
func SequentialZones(n int, host string, port int, token string, defaultDuration int) []ZoneConfig {
	res := make([]ZoneConfig, 0, n)
	for i := 1; i <= n; i++ {
		res = append(res, ZoneConfig{
			Zone:            i,
			DefaultDuration: defaultDuration,
			Host:            host,
			Port:            port,
			Token:           token,
		})
	}
	return res
}

func sortedZones(zones []ZoneConfig) []int {
	res := make([]int, 0, len(zones))
	for _, z := range zones {
		res = append(res, z.Zone)
	}
	sort.Ints(res)
	return res
}
