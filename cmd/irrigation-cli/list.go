package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

type ListCommand struct{}

func (c *ListCommand) Execute(args []string) error {
	ctx := context.Background()
	nodes, err := directory.Bridges(ctx)
	if err != nil {
		return err
	}
	return printNodes(ctx, os.Stdout, nodes)
}

func printNodes(ctx context.Context, out io.Writer, nodes []Node) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "NODE\tADDRESS\tVERSION\n")
	for _, n := range nodes {
		version, err := n.Version(ctx)
		if err != nil {
			version = "unreachable"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", n.Name, n.DialAddress(), version)
	}
	return w.Flush()
}

func init() {
	_, err := parser.AddCommand("list",
		"lists irrigation bridges",
		"lists irrigation bridges announced on the local network",
		&ListCommand{})
	if err != nil {
		panic(err.Error())
	}
}
