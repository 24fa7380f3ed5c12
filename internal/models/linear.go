package models

import (
	"fmt"

	"github.com/ZanzyTHEbar/orbis-trust/internal/adapters"
)

// LogisticModel is a fitted binary logistic regression
type LogisticModel struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// LoadLogisticModel reads and validates a logistic regression artifact
func LoadLogisticModel(path string) (*LogisticModel, error) {
	var m LogisticModel
	if err := loadArtifact(path, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logistic model %s: %w", path, err)
	}
	return &m, nil
}

func (m *LogisticModel) Validate() error {
	if len(m.Coef) == 0 {
		return fmt.Errorf("no coefficients")
	}
	if !finite(m.Coef...) || !finite(m.Intercept) {
		return fmt.Errorf("non-finite weights")
	}
	return nil
}

// Features returns the expected input width
func (m *LogisticModel) Features() int {
	return len(m.Coef)
}

// PredictProba returns [P(REAL), P(FAKE)]
func (m *LogisticModel) PredictProba(x adapters.SparseVector) ([]float64, error) {
	z := m.Intercept
	for idx, value := range x {
		if idx < 0 || idx >= len(m.Coef) {
			return nil, fmt.Errorf("feature %d outside %d coefficients", idx, len(m.Coef))
		}
		z += m.Coef[idx] * value
	}
	return binaryProba(sigmoid(z)), nil
}
