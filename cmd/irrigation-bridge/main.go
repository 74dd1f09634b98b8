package main

import (
	"os"

	"github.com/jbuck2005/irrigation-ha/internal/irrigation"
	flags "github.com/jessevdk/go-flags"
)

type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"enables verbose logging, repeat for more"`
}

var opts = &Options{}

var parser = flags.NewParser(opts, flags.Default)

func Execute() error {
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		irrigation.SetLogLevel(irrigation.VerboseLevel(len(opts.Verbose)))
		return command.Execute(args)
	}
	if _, err := parser.Parse(); err != nil {
		return err
	}
	return nil
}

func main() {
	if err := Execute(); err != nil {
		if ferr, ok := err.(*flags.Error); ok == true && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
