package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/orbis-trust/internal/adapters"
)

// tokenPattern keeps words of two or more characters
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// TFIDFVectorizer maps normalized text onto a fitted vocabulary. Its artifact
// carries what a fitted scikit-learn TfidfVectorizer exposes.
type TFIDFVectorizer struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	NgramRange  [2]int         `json:"ngram_range"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        string         `json:"norm"`
}

// LoadTFIDFVectorizer reads and validates a vectorizer artifact
func LoadTFIDFVectorizer(path string) (*TFIDFVectorizer, error) {
	var v TFIDFVectorizer
	if err := loadArtifact(path, &v); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vectorizer %s: %w", path, err)
	}
	return &v, nil
}

func (v *TFIDFVectorizer) Validate() error {
	if len(v.IDF) == 0 {
		return fmt.Errorf("empty idf table")
	}
	if v.NgramRange == [2]int{} {
		v.NgramRange = [2]int{1, 1}
	}
	if v.NgramRange[0] < 1 || v.NgramRange[1] < v.NgramRange[0] {
		return fmt.Errorf("bad ngram range %v", v.NgramRange)
	}
	switch v.Norm {
	case "", "l2", "l1", "none":
	default:
		return fmt.Errorf("unsupported norm %q", v.Norm)
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(v.IDF) {
			return fmt.Errorf("term %q maps to column %d outside %d features", term, idx, len(v.IDF))
		}
	}
	if !finite(v.IDF...) {
		return fmt.Errorf("non-finite idf weight")
	}
	return nil
}

// Features returns the width of produced vectors
func (v *TFIDFVectorizer) Features() int {
	return len(v.IDF)
}

// Transform produces the tf-idf row for one document. Out-of-vocabulary
// terms are dropped, so an empty vector is a valid result.
func (v *TFIDFVectorizer) Transform(text string) (adapters.SparseVector, error) {
	counts := make(map[int]float64)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	for n := v.NgramRange[0]; n <= v.NgramRange[1]; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := tokens[i]
			if n > 1 {
				term = strings.Join(tokens[i:i+n], " ")
			}
			if idx, ok := v.Vocabulary[term]; ok {
				counts[idx]++
			}
		}
	}

	vec := make(adapters.SparseVector, len(counts))
	for idx, tf := range counts {
		if v.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		vec[idx] = tf * v.IDF[idx]
	}

	v.normalize(vec)
	return vec, nil
}

func (v *TFIDFVectorizer) normalize(vec adapters.SparseVector) {
	var norm float64
	switch v.Norm {
	case "l1":
		for _, x := range vec {
			norm += math.Abs(x)
		}
	case "none":
		return
	default:
		for _, x := range vec {
			norm += x * x
		}
		norm = math.Sqrt(norm)
	}
	if norm == 0 {
		return
	}
	for idx := range vec {
		vec[idx] /= norm
	}
}
