package main

import (
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
)

type ServeCommand struct {
	Args struct {
		Config flags.Filename
	} `positional-args:"yes"`
}

func (c *ServeCommand) Execute(args []string) error {
	config, err := OpenConfigFromArg(c.Args.Config)
	if err != nil {
		return err
	}
	b, err := OpenBridge(*config)
	if err != nil {
		return err
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint
		b.logger.Info("shutting down")
		b.shutdown()
	}()

	return b.run(make(chan struct{}))
}

func init() {
	_, err := parser.AddCommand("serve",
		"serves irrigation zones over HTTP",
		"serves the zones of an irrigationd daemon over HTTP until interrupted",
		&ServeCommand{})
	if err != nil {
		panic(err.Error())
	}
}
