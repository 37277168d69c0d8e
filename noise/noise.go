package noise

import (
	"fmt"
	"math"

	"github.com/milosgajdos/omegaff"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// NewIsotropic returns zero mean noise of the given size whose channels are
// independent with standard deviation std. Zero std yields Zero noise which
// does not consume src.
// It returns error if std is negative or not finite.
func NewIsotropic(size int, std float64, src rand.Source) (omegaff.Noise, error) {
	if std < 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return nil, fmt.Errorf("%w: noise standard deviation %v", omegaff.ErrConfig, std)
	}

	if std == 0 {
		return NewZero(size)
	}

	if size <= 0 {
		return nil, fmt.Errorf("invalid noise dimension: %d", size)
	}

	cov := mat.NewSymDense(size, nil)
	for i := 0; i < size; i++ {
		cov.SetSym(i, i, std*std)
	}

	return NewGaussian(make([]float64, size), cov, src)
}
