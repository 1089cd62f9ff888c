// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package main

import (
	"fmt"
	"io"

	"github.com/knadh/koanf"
	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"

	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/pricer"
)

type Config interface {
	AddFlags(*pflag.FlagSet)
	Validate() error
	Print(io.Writer)
	ShouldExportCSV() bool
	ShouldPrintLine(int) bool
}

// ParseConfig reads the flag set, layering an optional JSON config file under
// the command-line flags.
func ParseConfig(config Config, args []string) error {
	flags := pflag.NewFlagSet("pricing-simulator", pflag.ExitOnError)
	configFile := flags.String("config-file", "", "Optional JSON file with config defaults")
	config.AddFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	k := koanf.New(".")
	if *configFile != "" {
		if err := k.Load(file.Provider(*configFile), koanfjson.Parser()); err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return fmt.Errorf("failed to load flags: %w", err)
	}
	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config.Validate()
}

type CommonConfig struct {
	Verbose             bool   `koanf:"verbose"`
	ExportCSV           bool   `koanf:"export-csv"`
	LogLevel            int    `koanf:"log-level"`
	SequencerThroughput uint64 `koanf:"sequencer-throughput"`
	SurgeDemand         uint64 `koanf:"surge-gas"`
	SurgeDuration       uint64 `koanf:"surge-duration"`
	SurgeRamp           uint64 `koanf:"surge-ramp"`
}

func (c *CommonConfig) AddFlags(flags *pflag.FlagSet) {
	flags.BoolVarP(&c.Verbose, "verbose", "v", false, "If set, print all data points")
	flags.BoolVar(&c.ExportCSV, "export-csv", false, "If set, print the output as csv")
	flags.IntVar(&c.LogLevel, "log-level", 3, "Log level (0 crit through 5 trace)")
	flags.Uint64Var(&c.SequencerThroughput, "sequencer-throughput", 128_000_000, "Max sequencer throughput per second")
	flags.Uint64Var(&c.SurgeDemand, "surge-gas", 200_000_000, "Amount of gas added to the backlog during peak surge")
	flags.Uint64Var(&c.SurgeDuration, "surge-duration", 30, "Surge peak duration in seconds")
	flags.Uint64Var(&c.SurgeRamp, "surge-ramp", 10, "Number of seconds surge takes to reach its peak")
}

func (c *CommonConfig) Print(w io.Writer) {
	fmt.Fprintln(w, "Verbose:\t", c.Verbose)
	fmt.Fprintln(w, "Sequencer Throughput:\t", toPrettyUint(c.SequencerThroughput))
	fmt.Fprintln(w, "Surge demand:\t", toPrettyUint(c.SurgeDemand))
	fmt.Fprintln(w, "Surge duration:\t", toPrettyUint(c.SurgeDuration))
	fmt.Fprintln(w, "Surge ramp:\t", toPrettyUint(c.SurgeRamp))
}

func (c *CommonConfig) ShouldExportCSV() bool {
	return c.ExportCSV
}

func (c *CommonConfig) Validate() error {
	if c.SurgeRamp == 0 {
		return fmt.Errorf("surge ramp must be positive")
	}
	return nil
}

func (c *CommonConfig) Iterations() uint64 {
	return c.SurgeDuration*2 + c.SurgeRamp*2 + 1
}

func (c *CommonConfig) ShouldPrintLine(i int) bool {
	return c.Verbose || arbmath.SaturatingUCast[uint64](i)%(c.Iterations()/10) == 0
}

type LegacyConfig struct {
	CommonConfig `koanf:",squash"`
	InitialBacklog   uint64 `koanf:"initial-backlog"`
	SpeedLimit       uint64 `koanf:"speed-limit"`
	Inertia          uint64 `koanf:"inertia"`
	BacklogTolerance uint64 `koanf:"backlog-tolerance"`
}

func (c *LegacyConfig) AddFlags(flags *pflag.FlagSet) {
	c.CommonConfig.AddFlags(flags)
	flags.Uint64Var(&c.InitialBacklog, "initial-backlog", 0, "Initial backlog")
	flags.Uint64Var(&c.SpeedLimit, "speed-limit", pricer.InitialSpeedLimitPerSecond, "Speed limit per second")
	flags.Uint64Var(&c.Inertia, "inertia", pricer.InitialPricingInertia, "Inertia")
	flags.Uint64Var(&c.BacklogTolerance, "backlog-tolerance", pricer.InitialBacklogTolerance, "Backlog tolerance")
}

func (c *LegacyConfig) Print(w io.Writer) {
	c.CommonConfig.Print(w)
	fmt.Fprintln(w, "Initial backlog:\t", toPrettyUint(c.InitialBacklog))
	fmt.Fprintln(w, "Speed limit:\t", toPrettyUint(c.SpeedLimit))
	fmt.Fprintln(w, "Inertia:\t", c.Inertia)
	fmt.Fprintln(w, "Backlog tolerance:\t", c.BacklogTolerance)
}

type ConstraintsConfig struct {
	CommonConfig `koanf:",squash"`
	Targets  []int64 `koanf:"targets"`
	Windows  []int64 `koanf:"windows"`
	Backlogs []int64 `koanf:"backlogs"`
}

var DefaultConstraintConfig = ConstraintsConfig{
	Targets: []int64{60_000_000, 41_000_000, 29_000_000, 20_000_000, 14_000_000, 10_000_000},
	Windows: []int64{9, 52, 329, 2_105, 13_485, 86_400},
}

func (c *ConstraintsConfig) AddFlags(flags *pflag.FlagSet) {
	c.CommonConfig.AddFlags(flags)
	flags.Int64SliceVar(&c.Targets, "targets", DefaultConstraintConfig.Targets, "List of constraints' targets; previously speed-limit")
	flags.Int64SliceVar(&c.Windows, "windows", DefaultConstraintConfig.Windows, "List of constraints' adjustment windows; previously inertia")
	flags.Int64SliceVar(&c.Backlogs, "backlogs", DefaultConstraintConfig.Backlogs, "List of constraints' initial backlogs")
}

func (c *ConstraintsConfig) Print(w io.Writer) {
	c.CommonConfig.Print(w)
	fmt.Fprintln(w, "Number of constraints:\t", len(c.Targets))
	for i := 0; i < len(c.Targets); i++ {
		var backlog int64
		if i < len(c.Backlogs) {
			backlog = c.Backlogs[i]
		}
		constraint := fmt.Sprintf("target=%v, window=%v, backlog=%v",
			toPrettyInt(c.Targets[i]), toPrettyInt(c.Windows[i]), toPrettyInt(backlog))
		fmt.Fprintf(w, "Constraint %v:\t%v\n", i, constraint)
	}
}

func (c *ConstraintsConfig) Validate() error {
	if err := c.CommonConfig.Validate(); err != nil {
		return err
	}
	for _, target := range c.Targets {
		if target < 0 {
			return fmt.Errorf("invalid negative target")
		}
	}
	for _, window := range c.Windows {
		if window < 0 {
			return fmt.Errorf("invalid negative adjustment window")
		}
	}
	for _, backlog := range c.Backlogs {
		if backlog < 0 {
			return fmt.Errorf("invalid negative backlog")
		}
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("expected at least one constraint")
	}
	if len(c.Targets) != len(c.Windows) {
		return fmt.Errorf("mismatch number of targets and adjustment-windows")
	}
	if len(c.Backlogs) > len(c.Targets) {
		return fmt.Errorf("too many initial backlogs")
	}
	return nil
}

// Constraints converts the parallel slices into constraint parameters, all
// keyed on computation gas.
func (c *ConstraintsConfig) Constraints() []pricer.ConstraintParams {
	params := make([]pricer.ConstraintParams, 0, len(c.Targets))
	for i := range c.Targets {
		var backlog uint64
		if i < len(c.Backlogs) {
			backlog = uint64(c.Backlogs[i])
		}
		params = append(params, pricer.ConstraintParams{
			Resources: []pricer.WeightedResource{
				{Resource: computationResourceId, Weight: 1},
			},
			AdjustmentWindowSecs: uint64(c.Windows[i]),
			TargetPerSec:         uint64(c.Targets[i]),
			Backlog:              backlog,
		})
	}
	return params
}
