// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package pricer

import (
	"encoding/json"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"

	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/multigas"
)

const InitialSpeedLimitPerSecond = 7_000_000
const InitialMinimumBaseFeeWei = params.GWei / 10
const InitialPricingInertia = 102
const InitialBacklogTolerance = 10

// AccessController answers whether a principal may perform owner-gated mutations.
type AccessController interface {
	IsAuthorized(principal common.Address) bool
}

// EventSink receives an audit record for every successful mutating call.
type EventSink interface {
	OwnerActs(method [4]byte, principal common.Address, data []byte)
}

// Engine prices gas across independent resource-dimension constraints.
//
// It has two modes. With a non-empty constraint set, each constraint tracks the
// weighted backlog of the resources it references and fees grow exponentially
// with backlog. With an empty set the engine falls back to the legacy
// single-dimension model driven by the speed limit, pricing inertia, and
// backlog tolerance.
//
// Configuration replacement and backlog advancement are serialized under one
// lock so a fee read always reflects a fully-applied prior write; reads run
// concurrently with each other and observe consistent snapshots.
type Engine struct {
	mu sync.RWMutex

	constraints   ConstraintSet
	minBaseFeeWei *big.Int
	baseFeeWei    *big.Int

	// legacy single-dimension model
	speedLimitPerSecond uint64
	pricingInertia      uint64
	backlogTolerance    uint64
	gasBacklog          uint64

	accessControl AccessController
	events        EventSink
}

// Config carries the initial engine parameters. Zero fields take the initial defaults.
type Config struct {
	MinBaseFeeWei       *big.Int
	SpeedLimitPerSecond uint64
	PricingInertia      uint64
	BacklogTolerance    uint64

	// AccessControl gates mutating calls; nil allows every caller.
	AccessControl AccessController
	// Events receives audit records; nil discards them.
	Events EventSink
}

func NewEngine(config Config) *Engine {
	engine := &Engine{
		minBaseFeeWei:       config.MinBaseFeeWei,
		speedLimitPerSecond: config.SpeedLimitPerSecond,
		pricingInertia:      config.PricingInertia,
		backlogTolerance:    config.BacklogTolerance,
		accessControl:       config.AccessControl,
		events:              config.Events,
	}
	if engine.minBaseFeeWei == nil {
		engine.minBaseFeeWei = big.NewInt(InitialMinimumBaseFeeWei)
	}
	if engine.speedLimitPerSecond == 0 {
		engine.speedLimitPerSecond = InitialSpeedLimitPerSecond
	}
	if engine.pricingInertia == 0 {
		engine.pricingInertia = InitialPricingInertia
	}
	if engine.backlogTolerance == 0 {
		engine.backlogTolerance = InitialBacklogTolerance
	}
	engine.baseFeeWei = new(big.Int).Set(engine.minBaseFeeWei)
	return engine
}

// Advance applies one accounting tick: it charges the active constraints for
// the gas used, pays off the elapsed time at each target rate, and recomputes
// the base fee. Usage may be nil when no gas was consumed.
func (e *Engine) Advance(elapsedSecs uint64, usage *multigas.MultiGas) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if usage == nil {
		usage = multigas.ZeroGas()
	}
	if e.constraints.Empty() {
		e.advanceLegacy(elapsedSecs, usage.Total())
		return
	}
	e.constraints.AddToBacklogs(usage)
	e.constraints.RemoveFromBacklogs(elapsedSecs)
	e.baseFeeWei = e.constraints.BaseFee(e.minBaseFeeWei)
}

// advanceLegacy advances the single-dimension model: the backlog grows by the
// gas used, drains at the speed limit, and prices exponentially past the
// tolerance threshold.
func (e *Engine) advanceLegacy(elapsedSecs uint64, gasUsed uint64) {
	backlog := arbmath.SaturatingUAdd(e.gasBacklog, gasUsed)
	backlog = arbmath.SaturatingUSub(backlog, arbmath.SaturatingUMul(elapsedSecs, e.speedLimitPerSecond))
	e.gasBacklog = backlog

	baseFee := new(big.Int).Set(e.minBaseFeeWei)
	tolerance := arbmath.SaturatingUMul(e.backlogTolerance, e.speedLimitPerSecond)
	if backlog > tolerance {
		excess := arbmath.SaturatingCast[int64](backlog - tolerance)
		divisor := arbmath.SaturatingCastToBips(arbmath.SaturatingUMul(e.pricingInertia, e.speedLimitPerSecond))
		exponent := arbmath.NaturalToBips(excess) / divisor
		baseFee = arbmath.BigMulByBips(e.minBaseFeeWei, arbmath.ApproxExpBasisPoints(exponent, 4))
	}
	e.baseFeeWei = baseFee
}

// Constraints returns a consistent snapshot of the active constraint set,
// including current backlogs. Empty in legacy mode.
func (e *Engine) Constraints() []ConstraintParams {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.constraints.Params()
}

// BaseFee returns the combined base fee from the last tick.
func (e *Engine) BaseFee() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return new(big.Int).Set(e.baseFeeWei)
}

// MinBaseFee returns the fee floor.
func (e *Engine) MinBaseFee() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return new(big.Int).Set(e.minBaseFeeWei)
}

// GasBacklog returns the legacy model's backlog.
func (e *Engine) GasBacklog() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gasBacklog
}

// BaseFees derives the per-resource base fees from the current backlogs.
// Resources referenced by no constraint report the floor fee.
func (e *Engine) BaseFees() map[multigas.ResourceKind]*big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.constraints.BaseFees(e.minBaseFeeWei)
}

// BaseFeeForResource derives the fee for one resource kind, taking the
// maximum across the constraints that reference it.
func (e *Engine) BaseFeeForResource(resource uint8) (*big.Int, error) {
	kind, err := multigas.CheckResourceKind(resource)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.constraints.BaseFeeForResource(kind, e.minBaseFeeWei), nil
}

// SetConstraints atomically replaces the constraint set. Submitting zero
// constraints reverts the engine to the legacy model. Requires authorization.
func (e *Engine) SetConstraints(caller common.Address, params []ConstraintParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authorized(caller) {
		return ErrUnauthorized
	}
	if err := e.constraints.Replace(params); err != nil {
		return err
	}
	e.baseFeeWei = e.constraints.BaseFee(e.minBaseFeeWei)
	e.emitOwnerActs(setConstraintsMethod, caller, params)
	return nil
}

// SetMinBaseFee replaces the fee floor. Requires authorization.
func (e *Engine) SetMinBaseFee(caller common.Address, fee *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authorized(caller) {
		return ErrUnauthorized
	}
	e.minBaseFeeWei = new(big.Int).Set(fee)
	e.emitOwnerActs(setMinBaseFeeMethod, caller, fee)
	return nil
}

// SetSpeedLimit replaces the legacy model's target throughput. Requires authorization.
func (e *Engine) SetSpeedLimit(caller common.Address, limit uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authorized(caller) {
		return ErrUnauthorized
	}
	if limit == 0 {
		return errors.New("speed limit must be nonzero")
	}
	e.speedLimitPerSecond = limit
	e.emitOwnerActs(setSpeedLimitMethod, caller, limit)
	return nil
}

// SetPricingInertia replaces the legacy model's exponent divisor. Requires authorization.
func (e *Engine) SetPricingInertia(caller common.Address, inertia uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authorized(caller) {
		return ErrUnauthorized
	}
	if inertia == 0 {
		return errors.New("pricing inertia must be nonzero")
	}
	e.pricingInertia = inertia
	e.emitOwnerActs(setPricingInertiaMethod, caller, inertia)
	return nil
}

// SetBacklogTolerance replaces the legacy model's free-backlog allowance,
// denominated in seconds of full-speed output. Requires authorization.
func (e *Engine) SetBacklogTolerance(caller common.Address, tolerance uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authorized(caller) {
		return ErrUnauthorized
	}
	e.backlogTolerance = tolerance
	e.emitOwnerActs(setBacklogToleranceMethod, caller, tolerance)
	return nil
}

// SetGasBacklog overwrites the legacy model's backlog. Requires authorization.
func (e *Engine) SetGasBacklog(caller common.Address, backlog uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.authorized(caller) {
		return ErrUnauthorized
	}
	e.gasBacklog = backlog
	e.emitOwnerActs(setGasBacklogMethod, caller, backlog)
	return nil
}

func (e *Engine) authorized(caller common.Address) bool {
	if e.accessControl == nil {
		return true
	}
	return e.accessControl.IsAuthorized(caller)
}

var (
	setConstraintsMethod      = methodSelector("setMultiGasPricingConstraints((uint8,uint64)[],uint64,uint64,uint64)")
	setMinBaseFeeMethod       = methodSelector("setMinimumL2BaseFee(uint256)")
	setSpeedLimitMethod       = methodSelector("setSpeedLimit(uint64)")
	setPricingInertiaMethod   = methodSelector("setL2GasPricingInertia(uint64)")
	setBacklogToleranceMethod = methodSelector("setL2GasBacklogTolerance(uint64)")
	setGasBacklogMethod       = methodSelector("setGasBacklog(uint64)")
)

func methodSelector(signature string) [4]byte {
	var selector [4]byte
	copy(selector[:], crypto.Keccak256([]byte(signature)))
	return selector
}

// emitOwnerActs records a successful mutation: who acted, through which
// method, and with what parameters.
func (e *Engine) emitOwnerActs(method [4]byte, caller common.Address, args any) {
	if e.events == nil {
		return
	}
	data, err := json.Marshal(args)
	if err != nil {
		data = nil
	}
	e.events.OwnerActs(method, caller, data)
}
