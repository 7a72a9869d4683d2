// Package sample provides the numeric sampling primitives used by
// statistical generation rules.
//
// Every sampler is a pure function of an explicit random Source, so tests
// can substitute a seeded or scripted source and get identical draws.
package sample

import (
	"math"
	"math/rand/v2"
)

// Source supplies uniform variates in [0,1). It is the only randomness
// the samplers consume; thread a seeded source through for reproducible
// output.
//
// Implementations need not be safe for concurrent use. Callers that share
// a source across goroutines own the locking.
type Source interface {
	Float64() float64
}

// NewSource returns a source seeded from the given values (PCG).
func NewSource(seed1, seed2 uint64) Source {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// NewRandomSource returns a source seeded from the runtime's entropy.
func NewRandomSource() Source {
	return defaultSource{}
}

type defaultSource struct{}

func (defaultSource) Float64() float64 { return rand.Float64() }

// Normal draws from N(mean, stddev²) via the Box-Muller transform:
//
//	z0 = sqrt(-2·ln(u1)) · cos(2π·u2)
//
// u1 is resampled away from 0 so the log stays finite.
func Normal(src Source, mean, stddev float64) float64 {
	u1 := src.Float64()
	for u1 == 0 {
		u1 = src.Float64()
	}
	u2 := src.Float64()
	z0 := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + z0*stddev
}

// Uniform draws from U(min, max).
func Uniform(src Source, min, max float64) float64 {
	return min + src.Float64()*(max-min)
}

// LogNormal draws exp(N(mu, sigma²)).
func LogNormal(src Source, mu, sigma float64) float64 {
	return math.Exp(Normal(src, mu, sigma))
}

// Exponential draws from Exp(lambda) by inverting the CDF. The 1-u form
// keeps the log argument strictly positive for u in [0,1).
func Exponential(src Source, lambda float64) float64 {
	return -math.Log(1-src.Float64()) / lambda
}

// Poisson draws from Pois(lambda) using Knuth's algorithm: multiply
// uniform draws until the product falls to exp(-lambda), counting draws.
// Runtime is O(lambda); fine for the rule parameters schemas declare.
// Non-positive lambda is a degenerate distribution at 0.
func Poisson(src Source, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	product := 1.0
	count := -1
	for product > limit {
		product *= src.Float64()
		count++
	}
	return count
}
