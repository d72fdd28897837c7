package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/rover/pkg/robot"
)

type Options struct {
	Config  string `long:"config" short:"c" default:"rover.json" description:"Configuration file"`
	Address string `long:"address" short:"a" description:"Rover address (host:port or ws:// URL), overrides the configuration"`
	Verbose bool   `long:"verbose" short:"v" description:"Debug logging"`
	LogFile string `long:"log-file" description:"Write logs to this file, rotated"`

	Setup   SetupCommand   `command:"setup" description:"Write the ground station configuration"`
	Monitor MonitorCommand `command:"monitor" alias:"mon" description:"Show live rover telemetry"`
	Tail    TailCommand    `command:"tail" description:"Print rover telemetry as log lines"`
	Fake    FakeCommand    `command:"fake" description:"Serve a scripted rover for testing"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Rover - ground station for the rover telemetry link"

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

// loadConfig reads the configuration file, falling back to defaults when it
// does not exist, and applies flag overrides.
func loadConfig() (*robot.Config, error) {
	cfg := robot.DefaultConfig()
	if robot.ConfigExists(opts.Config) {
		loaded, err := robot.LoadConfigFrom(opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.Address != "" {
		cfg.Address = opts.Address
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", opts.Config, err)
	}
	return cfg, nil
}
