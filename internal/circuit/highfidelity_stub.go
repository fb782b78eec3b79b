//go:build !highfidelity

package circuit

import (
	"fmt"

	"neuropharm/internal/backend"
	"neuropharm/internal/params"
)

func runHighFidelity(_ params.Circuit, _ [][]float64, _ [][]float64, _ []float64, _ float64) ([][]float64, error) {
	return nil, fmt.Errorf("connectome solver not compiled in: %w", backend.ErrUnavailable)
}
