// Package gauge provides reading sources for the DBS instrument panel.
package gauge

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/domain/trip"
)

// Simulator produces plausible instrument readings for environments without
// real panel hardware. Pressure and flow jitter around a baseline; the MFM
// totalizer only ever increases, like the physical meter.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
	mfm float64
}

var _ port.GaugeReader = (*Simulator)(nil)

// NewSimulator seeds a simulator with a starting totalizer value.
func NewSimulator() *Simulator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Simulator{
		rng: rng,
		mfm: 10000 + rng.Float64()*5000,
	}
}

func (s *Simulator) Snapshot(ctx context.Context) (trip.ReadingSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mfm += s.rng.Float64() * 50
	return trip.ReadingSnapshot{
		Pressure: 8.0 + s.rng.Float64()*4.0,
		Flow:     40.0 + s.rng.Float64()*20.0,
		MFM:      s.mfm,
		Time:     time.Now(),
	}, nil
}
