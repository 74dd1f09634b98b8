package main

import (
	"fmt"
	"os"

	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
)

type VersionCommand struct {
}

func (c *VersionCommand) Execute(args []string) error {
	fmt.Fprintf(os.Stdout, "irrigation-cli version %s\n", irrigation.IRRIGATION_VERSION)
	return nil
}

func init() {
	_, err := parser.AddCommand("version",
		"print version",
		"prints version on stdout",
		&VersionCommand{})
	if err != nil {
		panic(err.Error())
	}
}
