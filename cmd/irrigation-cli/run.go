package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
)

type RunCommand struct {
	Duration *int `short:"d" long:"duration" description:"run duration in seconds, defaults to the zone default duration"`
	Level    *int `short:"l" long:"level" description:"run for level/255 of the zone default duration"`
	Args     struct {
		Node BridgeName
		Zone int
	} `positional-args:"yes" required:"yes"`
}

func (c *RunCommand) request() (RunRequest, error) {
	if c.Duration != nil && c.Level != nil {
		return RunRequest{}, errors.New("--duration and --level are mutually exclusive")
	}
	return RunRequest{Duration: c.Duration, Level: c.Level}, nil
}

func printState(st irrigation.ZoneState) {
	if st.Running == false {
		fmt.Fprintf(os.Stdout, "zone %d is off\n", st.Zone)
		return
	}
	fmt.Fprintf(os.Stdout, "zone %d is on for %s\n", st.Zone, formatSeconds(st.RemainingSeconds))
}

func (c *RunCommand) Execute(args []string) (err error) {
	ctx, span := startSpan("Run")
	defer func() { endWithError(span, err) }()

	request, err := c.request()
	if err != nil {
		return err
	}
	node, err := directory.Resolve(ctx, c.Args.Node)
	if err != nil {
		return err
	}
	st, err := node.Run(ctx, c.Args.Zone, request)
	if err != nil {
		return err
	}
	printState(st)
	return nil
}

type StopCommand struct {
	All  bool `short:"a" long:"all" description:"stops every zone of the node"`
	Args struct {
		Node BridgeName
		Zone int `positional-arg-name:"zone"`
	} `positional-args:"yes"`
}

func (c *StopCommand) Execute(args []string) (err error) {
	ctx, span := startSpan("Stop")
	defer func() { endWithError(span, err) }()

	if len(c.Args.Node) == 0 {
		return errors.New("missing node")
	}
	if c.All == (c.Args.Zone != 0) {
		return errors.New("give either a zone or --all")
	}
	node, err := directory.Resolve(ctx, c.Args.Node)
	if err != nil {
		return err
	}
	if c.All == true {
		return node.StopAll(ctx)
	}
	st, err := node.Stop(ctx, c.Args.Zone)
	if err != nil {
		return err
	}
	printState(st)
	return nil
}

func init() {
	_, err := parser.AddCommand("run",
		"runs a zone",
		"runs a zone of a node for its default duration, a given duration or a level",
		&RunCommand{})
	if err != nil {
		panic(err.Error())
	}

	_, err = parser.AddCommand("stop",
		"stops a zone",
		"stops a zone of a node, or all its zones with --all",
		&StopCommand{})
	if err != nil {
		panic(err.Error())
	}
}
