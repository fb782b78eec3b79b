//go:build !highfidelity

package pkpd

import (
	"fmt"

	"neuropharm/internal/backend"
	"neuropharm/internal/model"
	"neuropharm/internal/params"
)

func runHighFidelity(_ params.PKPD, _ model.Dosing, _ []float64, _ float64) ([]float64, error) {
	return nil, fmt.Errorf("PBPK solver not compiled in: %w", backend.ErrUnavailable)
}
