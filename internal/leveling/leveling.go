// Package leveling maps accumulated experience onto the level ladder.
//
// The requirement to advance from level n to n+1 is Base * Growth^(n-1),
// floored to an integer. Growth is held as the exact ratio GrowthNum/GrowthDen
// and requirements are evaluated in big-integer arithmetic, so level
// boundaries are identical on every platform.
package leveling

import (
	"fmt"
	"math"
	"math/big"

	"github.com/attaboy/lifestats/internal/domain"
)

// Default curve constants: 100 XP for the first level, 20% more for each
// level after that, and a hard ceiling at level 100.
const (
	DefaultBase      = 100
	DefaultGrowthNum = 6
	DefaultGrowthDen = 5
	DefaultMaxLevel  = 100
)

const maxLevelLimit = 10_000

// Capped is returned as ToNext once leveling has stopped.
const Capped = domain.ExperienceCapped

// Result is a position on the level ladder.
type Result struct {
	Level   int64
	Current int64
	ToNext  int64
}

// Curve is a geometric experience curve.
type Curve struct {
	Base      int64
	GrowthNum int64
	GrowthDen int64
	MaxLevel  int64
}

// DefaultCurve returns the standard 100 * 1.2^(n-1) curve capped at level 100.
func DefaultCurve() Curve {
	return Curve{
		Base:      DefaultBase,
		GrowthNum: DefaultGrowthNum,
		GrowthDen: DefaultGrowthDen,
		MaxLevel:  DefaultMaxLevel,
	}
}

// Validate rejects curves with non-positive parameters.
func (c Curve) Validate() error {
	if c.Base <= 0 {
		return fmt.Errorf("level base must be positive, got %d", c.Base)
	}
	if c.GrowthNum <= 0 || c.GrowthDen <= 0 {
		return fmt.Errorf("level growth must be a positive ratio, got %d/%d", c.GrowthNum, c.GrowthDen)
	}
	if c.MaxLevel < 1 || c.MaxLevel > maxLevelLimit {
		return fmt.Errorf("max level must be between 1 and %d, got %d", maxLevelLimit, c.MaxLevel)
	}
	return nil
}

// ComputeLevel places total experience on the default curve.
func ComputeLevel(total int64) Result {
	return defaultCurve.Compute(total)
}

// Requirement returns the experience needed to go from level to level+1 on
// the default curve, or Capped.
func Requirement(level int64) int64 {
	return defaultCurve.Requirement(level)
}

var defaultCurve = DefaultCurve()

// Compute walks the ladder from level 1, consuming each level's requirement
// while the remainder covers it. It stops, in order, when the requirement is
// not representable as int64, when MaxLevel is reached, or when the
// requirement is not positive. The loop runs at most MaxLevel times.
func (c Curve) Compute(total int64) Result {
	if total < 0 {
		total = 0
	}
	level := int64(1)
	remaining := total
	for {
		req := c.Requirement(level)
		if req == Capped || level >= c.MaxLevel {
			return Result{Level: level, Current: remaining, ToNext: Capped}
		}
		if remaining < req {
			return Result{Level: level, Current: remaining, ToNext: req}
		}
		remaining -= req
		level++
	}
}

// Requirement returns floor(Base * (GrowthNum/GrowthDen)^(level-1)). Values
// that overflow int64 or that are not positive come back as Capped.
func (c Curve) Requirement(level int64) int64 {
	if level < 1 {
		level = 1
	}
	if c.Base <= 0 || c.GrowthNum <= 0 || c.GrowthDen <= 0 {
		return Capped
	}
	if overflows(c, level) {
		return Capped
	}

	exp := big.NewInt(level - 1)
	num := new(big.Int).Exp(big.NewInt(c.GrowthNum), exp, nil)
	num.Mul(num, big.NewInt(c.Base))
	den := new(big.Int).Exp(big.NewInt(c.GrowthDen), exp, nil)
	req := num.Quo(num, den)

	if !req.IsInt64() {
		return Capped
	}
	v := req.Int64()
	if v <= 0 || v == Capped {
		return Capped
	}
	return v
}

// overflows is a floating-point pre-check for requirements far beyond int64.
// Borderline values are settled by the exact computation.
func overflows(c Curve, level int64) bool {
	growth := float64(c.GrowthNum) / float64(c.GrowthDen)
	est := float64(c.Base) * math.Pow(growth, float64(level-1))
	return math.IsInf(est, 0) || est > 2*float64(math.MaxInt64)
}
