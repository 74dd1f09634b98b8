package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
)

// SendCommand talks to irrigationd directly, without a bridge.
type SendCommand struct {
	Host    string        `long:"host" description:"irrigationd host" required:"yes"`
	Port    int           `long:"port" description:"irrigationd port" default:"4242"`
	Token   string        `long:"token" description:"shared secret, if the daemon requires one"`
	Timeout time.Duration `long:"timeout" description:"connect and response timeout" default:"5s"`
	Args    struct {
		Zone    int
		Seconds int
	} `positional-args:"yes" required:"yes"`
}

func (c *SendCommand) Execute(args []string) (err error) {
	ctx, span := startSpan("Send")
	defer func() { endWithError(span, err) }()

	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s ( should be positive )", c.Timeout)
	}
	client := irrigation.NewClient(irrigation.DaemonAddress(c.Host, c.Port))
	client.Timeout = c.Timeout
	cmd := irrigation.Command{Zone: c.Args.Zone, Seconds: c.Args.Seconds, Token: c.Token}
	if err := client.Send(ctx, cmd); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "OK\n")
	return nil
}

func init() {
	_, err := parser.AddCommand("send",
		"sends a raw command to irrigationd",
		"sends ZONE=<zone> TIME=<seconds> to an irrigationd daemon, 0 seconds stops the zone",
		&SendCommand{})
	if err != nil {
		panic(err.Error())
	}
}
