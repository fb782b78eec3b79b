//go:build !highfidelity

package molecular

import (
	"fmt"

	"neuropharm/internal/backend"
	"neuropharm/internal/params"
)

func runHighFidelity(_ map[string]float64, _ params.Molecular) (Signal, error) {
	return Signal{}, fmt.Errorf("reaction-network solver not compiled in: %w", backend.ErrUnavailable)
}
