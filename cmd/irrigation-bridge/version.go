package main

import (
	"fmt"

	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
)

type VersionCommand struct{}

func (c *VersionCommand) Execute(args []string) error {
	fmt.Printf("%s\n", irrigation.IRRIGATION_VERSION)
	return nil
}

func init() {
	_, err := parser.AddCommand("version",
		"print irrigation-bridge version",
		"prints irrigation-bridge version on stdout and exit",
		&VersionCommand{})
	if err != nil {
		panic(err.Error())
	}
}
