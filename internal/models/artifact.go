package models

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// loadArtifact decodes a JSON model artifact
func loadArtifact(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open model artifact: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode model artifact %s: %w", filepath.Base(path), err)
	}

	return nil
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func binaryProba(p1 float64) []float64 {
	return []float64{1 - p1, p1}
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
