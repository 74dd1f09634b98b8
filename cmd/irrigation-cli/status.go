package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"
)

type StatusCommand struct {
	Args struct {
		Node BridgeName
	} `positional-args:"yes" required:"yes"`
}

func formatSeconds(s int) string {
	return (time.Duration(s) * time.Second).String()
}

func printZones(out io.Writer, zones []ZoneReport) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ZONE\tNAME\tSTATE\tREMAINING\tDEFAULT\tRUNS\tLAST START\n")
	for _, z := range zones {
		state := "off"
		remaining := "-"
		if z.Running == true {
			state = "on"
			remaining = fmt.Sprintf("%s/%s", formatSeconds(z.RemainingSeconds), formatSeconds(z.ConfiguredDurationSeconds))
		}
		lastStart := z.LastStartedAt
		if len(lastStart) == 0 {
			lastStart = "never"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			z.Zone, z.Name, state, remaining, formatSeconds(z.DefaultDurationSeconds), z.Runs, lastStart)
	}
	return w.Flush()
}

func (c *StatusCommand) Execute(args []string) (err error) {
	ctx, span := startSpan("Status")
	defer func() { endWithError(span, err) }()

	node, err := directory.Resolve(ctx, c.Args.Node)
	if err != nil {
		return err
	}
	zones, err := node.Zones(ctx)
	if err != nil {
		return err
	}
	return printZones(os.Stdout, zones)
}

func init() {
	_, err := parser.AddCommand("status",
		"shows zones of a node",
		"shows the state of every zone of a node",
		&StatusCommand{})
	if err != nil {
		panic(err.Error())
	}
}
