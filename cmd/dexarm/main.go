package main

import (
	"context"
	"flag"
	"os"
	"strconv"

	"github.com/golang/glog"
	"github.com/jessevdk/go-flags"

	"github.com/mastercactapus/dexarm/machine/dexarm"
)

type Options struct {
	Port    string `long:"port" short:"p" description:"Serial port path (or name if using SPJS)"`
	Baud    int    `long:"baud" description:"Baud rate (default 115200)"`
	Driver  string `long:"driver" choice:"tarm" choice:"bugst" description:"Serial driver (default tarm)"`
	SPJS    string `long:"spjs" description:"Websocket URL of an SPJS server to reach the port through"`
	Timeout string `long:"timeout" description:"How long to wait for each command to complete (default 30s)"`
	Sim     bool   `long:"sim" description:"Use a simulated arm"`

	ConfigFile string `long:"config" description:"JSON file holding saved options (default dexarm.json)"`
	Verbosity  int    `short:"v" long:"verbosity" description:"Log verbosity; 2 logs every line sent and received"`

	Serve      ServeCommand      `command:"serve" description:"Serve an HTTP API for the arm"`
	Keys       KeysCommand       `command:"keys" description:"Jog the arm from the keyboard"`
	Shell      ShellCommand      `command:"shell" alias:"sh" description:"Interactive shell"`
	SaveConfig SaveConfigCommand `command:"save-config" description:"Save connection options to the config file"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

// Config returns the saved config overridden by any options given.
func (o *Options) Config() (Config, error) {
	cfg, err := LoadConfigFrom(o.configPath())
	if err != nil {
		return Config{}, err
	}
	cfg.Merge(Config{
		Port:    o.Port,
		Baud:    o.Baud,
		Driver:  o.Driver,
		SPJS:    o.SPJS,
		Timeout: o.Timeout,
		Sim:     o.Sim,
	})
	return *cfg, nil
}

func (o *Options) configPath() string {
	if o.ConfigFile == "" {
		return DefaultConfigFile
	}
	return o.ConfigFile
}

// connect opens the arm configured by opts.
func connect(ctx context.Context) (*dexarm.Arm, func(), error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, nil, err
	}
	return openArm(ctx, cfg)
}

type SaveConfigCommand struct{}

func (c *SaveConfigCommand) Execute(args []string) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.configPath()); err != nil {
		return err
	}
	glog.Infof("saved %s", opts.configPath())
	return nil
}

func setupLogging() {
	// glog reads its settings from the standard flag set
	flag.CommandLine.Parse(nil)
	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(opts.Verbosity))
}

func main() {
	parser.LongDescription = "Control a DexArm over its serial port"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		setupLogging()
		defer glog.Flush()
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
