package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
)

type WatchCommand struct {
	Args struct {
		Node BridgeName
	} `positional-args:"yes" required:"yes"`
}

func printEvent(out io.Writer, st irrigation.ZoneState) {
	fmt.Fprintf(out, "%s zone %d running=%t remaining=%d/%d\n",
		st.UpdatedAt.Format("15:04:05"), st.Zone, st.Running, st.RemainingSeconds, st.ConfiguredDurationSeconds)
}

func (c *WatchCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	node, err := directory.Resolve(ctx, c.Args.Node)
	if err != nil {
		return err
	}
	return node.Watch(ctx, func(st irrigation.ZoneState) {
		printEvent(os.Stdout, st)
	})
}

func init() {
	_, err := parser.AddCommand("watch",
		"follows zone changes",
		"prints every zone state change of a node until interrupted",
		&WatchCommand{})
	if err != nil {
		panic(err.Error())
	}
}
