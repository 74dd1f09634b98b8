package irrigation

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a single request to irrigationd. Seconds == 0 stops the zone.
type Command struct {
	Zone    int
	Seconds int
	Token   string
}

func StopCommand(zone int, token string) Command {
	return Command{Zone: zone, Seconds: 0, Token: token}
}

func (c Command) IsStop() bool {
	return c.Seconds == 0
}

// String returns the wire line without its newline terminator.
func (c Command) String() string {
	if len(c.Token) == 0 {
		return fmt.Sprintf("ZONE=%d TIME=%d", c.Zone, c.Seconds)
	}
	return fmt.Sprintf("ZONE=%d TIME=%d TOKEN=%s", c.Zone, c.Seconds, c.Token)
}

func (c Command) MarshalText() ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return []byte(c.String() + "\n"), nil
}

func (c Command) check() error {
	if c.Zone < 1 {
		return fmt.Errorf("invalid zone %d", c.Zone)
	}
	if c.Seconds < 0 {
		return fmt.Errorf("%w %d", ErrInvalidDuration, c.Seconds)
	}
	if strings.ContainsAny(c.Token, " \t\r\n") {
		return fmt.Errorf("token must not contain whitespace")
	}
	return nil
}

// ParseCommand decodes a wire line as sent by Command.MarshalText.
func ParseCommand(line string) (Command, error) {
	c := Command{}
	fields := strings.Fields(strings.TrimSpace(line))
	seen := map[string]bool{}
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if ok == false {
			return Command{}, fmt.Errorf("invalid field '%s'", f)
		}
		if seen[key] == true {
			return Command{}, fmt.Errorf("duplicated field '%s'", key)
		}
		seen[key] = true
		var err error
		switch key {
		case "ZONE":
			c.Zone, err = strconv.Atoi(value)
		case "TIME":
			c.Seconds, err = strconv.Atoi(value)
		case "TOKEN":
			c.Token = value
		default:
			return Command{}, fmt.Errorf("unknown field '%s'", key)
		}
		if err != nil {
			return Command{}, fmt.Errorf("invalid %s value '%s'", key, value)
		}
	}
	if seen["ZONE"] == false || seen["TIME"] == false {
		return Command{}, fmt.Errorf("missing ZONE or TIME in '%s'", strings.TrimSpace(line))
	}
	return c, c.check()
}
