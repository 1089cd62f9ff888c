// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

// The pricing-simulator simulates how the base fee responds to a gas demand
// surge, under either the legacy model or a set of pricing constraints.
package main

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"

	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/multigas"
	"github.com/offchainlabs/gaspricer/pricer"
)

const computationResourceId = uint8(multigas.ResourceKindComputation)

var simulatorOperator = common.HexToAddress("0x0000000000000000000000000000000000000001")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pricing-simulator <legacy|constraints> [flags]")
		os.Exit(1)
	}
	model := os.Args[1]
	args := os.Args[2:]

	var err error
	switch model {
	case "legacy":
		config := &LegacyConfig{}
		if err = ParseConfig(config, args); err == nil {
			initLogging(config.LogLevel)
			err = runSimulation(config, newLegacyEngine(config))
		}
	case "constraints":
		config := &ConstraintsConfig{}
		if err = ParseConfig(config, args); err == nil {
			initLogging(config.LogLevel)
			err = runConstraintsSimulation(config)
		}
	default:
		err = fmt.Errorf("unknown model %q", model)
	}
	if err != nil {
		log.Error("simulation failed", "err", err)
		os.Exit(1)
	}
}

func initLogging(level int) {
	glogger := log.NewGlogHandler(log.NewTerminalHandler(os.Stderr, false))
	glogger.Verbosity(log.FromLegacyLevel(level))
	log.SetDefault(log.NewLogger(glogger))
}

func newLegacyEngine(config *LegacyConfig) *pricer.Engine {
	engine := pricer.NewEngine(pricer.Config{
		SpeedLimitPerSecond: config.SpeedLimit,
		PricingInertia:      config.Inertia,
		BacklogTolerance:    config.BacklogTolerance,
	})
	if err := engine.SetGasBacklog(simulatorOperator, config.InitialBacklog); err != nil {
		log.Crit("failed to seed backlog", "err", err)
	}
	return engine
}

func runConstraintsSimulation(config *ConstraintsConfig) error {
	engine := pricer.NewEngine(pricer.Config{})
	if err := engine.SetConstraints(simulatorOperator, config.Constraints()); err != nil {
		return fmt.Errorf("failed to set constraints: %w", err)
	}
	return runSimulation(config, engine)
}

// demandAt ramps gas demand linearly up to the surge peak, holds it there,
// and ramps back down to zero.
func demandAt(second uint64, c *CommonConfig) uint64 {
	ramp := c.SurgeRamp
	peakStart := ramp
	peakEnd := ramp + c.SurgeDuration
	rampEnd := peakEnd + ramp
	switch {
	case second < peakStart:
		return c.SurgeDemand * second / ramp
	case second < peakEnd:
		return c.SurgeDemand
	case second < rampEnd:
		return c.SurgeDemand * (rampEnd - second) / ramp
	default:
		return 0
	}
}

type simulationConfig interface {
	Config
	Iterations() uint64
	commonConfig() *CommonConfig
}

func (c *CommonConfig) commonConfig() *CommonConfig { return c }

func runSimulation(config simulationConfig, engine *pricer.Engine) error {
	shared := config.commonConfig()
	csv := config.ShouldExportCSV()
	if csv {
		fmt.Println("second,demand,used,basefee_wei")
	} else {
		config.Print(os.Stdout)
		fmt.Println()
		fmt.Println("Second\tDemand\tUsed\tBase fee (gwei)")
	}

	iterations := config.Iterations()
	for i := uint64(0); i < iterations; i++ {
		demand := demandAt(i, shared)
		used := arbmath.MinInt(demand, shared.SequencerThroughput)
		engine.Advance(1, multigas.NewMultiGas(multigas.ResourceKindComputation, used))
		baseFee := engine.BaseFee()

		// #nosec G115 iteration count fits an int
		if !config.ShouldPrintLine(int(i)) {
			continue
		}
		if csv {
			fmt.Printf("%v,%v,%v,%v\n", i, demand, used, baseFee)
		} else {
			fmt.Printf("%v\t%v\t%v\t%v\n",
				i, toPrettyUint(demand), toPrettyUint(used), toPrettyGwei(baseFee))
		}
	}
	return nil
}

func toPrettyGwei(wei *big.Int) string {
	gwei := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.GWei))
	return gwei.Text('f', 3)
}

func toPrettyInt(value int64) string {
	if value < 0 {
		return "-" + toPrettyUint(uint64(-value))
	}
	return toPrettyUint(uint64(value))
}

func toPrettyUint(value uint64) string {
	digits := strconv.FormatUint(value, 10)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return strings.Join(groups, "_")
}
