package venue

import (
	"context"
	"math/rand/v2"
)

// priceFloor keeps the walked price strictly positive.
const priceFloor = 1e-4

// SimulatedVenue produces a seeded multiplicative random walk around its
// start price. A constant venue bias is applied on read only, so two venues
// walking the same path can still show a persistent spread.
type SimulatedVenue struct {
	name       string
	price      float64
	volatility float64
	venueBias  float64
	rng        *rand.Rand
}

// NewSimulatedVenue creates a simulated price feed. The same seed and
// parameters reproduce the same price sequence.
func NewSimulatedVenue(name string, startPrice, volatility, venueBias float64, seed uint64) *SimulatedVenue {
	return &SimulatedVenue{
		name:       name,
		price:      startPrice,
		volatility: volatility,
		venueBias:  venueBias,
		rng:        rand.New(rand.NewPCG(seed, seed)),
	}
}

func (v *SimulatedVenue) Name() string { return v.name }

// FetchPrice advances the walk one step and returns the biased reading.
// It never fails.
func (v *SimulatedVenue) FetchPrice(_ context.Context) (float64, error) {
	noise := (v.rng.Float64()*2 - 1) * v.volatility
	v.price *= 1.0 + noise
	if v.price < priceFloor {
		v.price = priceFloor
	}
	return v.price * (1.0 + v.venueBias), nil
}
