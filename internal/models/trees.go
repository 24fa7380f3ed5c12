package models

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/ZanzyTHEbar/orbis-trust/internal/adapters"
)

// Tree ensemble aggregation modes
const (
	// AggregateMeanProba averages per-tree P(FAKE) leaves (random forest)
	AggregateMeanProba = "mean_proba"
	// AggregateLogitSum sums leaf margins onto base_score and applies a sigmoid (gradient boosting)
	AggregateLogitSum = "logit_sum"
)

// TreeNode is one node of a binary decision tree. A sample goes left when
// its feature value is less than or equal to the threshold.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeEnsemble is a fitted random forest or gradient boosted model
type TreeEnsemble struct {
	Aggregation string  `json:"aggregation"`
	BaseScore   float64 `json:"base_score"`
	NumFeatures int     `json:"num_features"`
	Trees       []Tree  `json:"trees"`
}

// LoadTreeEnsemble reads a tree ensemble artifact and checks it uses the expected aggregation
func LoadTreeEnsemble(path, aggregation string) (*TreeEnsemble, error) {
	var m TreeEnsemble
	if err := loadArtifact(path, &m); err != nil {
		return nil, err
	}
	if m.Aggregation == "" {
		m.Aggregation = aggregation
	}
	if m.Aggregation != aggregation {
		return nil, fmt.Errorf("model %s uses %s aggregation, expected %s", path, m.Aggregation, aggregation)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tree ensemble %s: %w", path, err)
	}
	return &m, nil
}

func (m *TreeEnsemble) Validate() error {
	switch m.Aggregation {
	case AggregateMeanProba, AggregateLogitSum:
	default:
		return fmt.Errorf("unknown aggregation %q", m.Aggregation)
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	if !finite(m.BaseScore) {
		return fmt.Errorf("non-finite base score")
	}

	for t, tree := range m.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", t)
		}
		for i, node := range tree.Nodes {
			if !finite(node.Threshold, node.Value) {
				return fmt.Errorf("tree %d node %d has non-finite values", t, i)
			}
			if node.Leaf {
				if m.Aggregation == AggregateMeanProba && (node.Value < 0 || node.Value > 1) {
					return fmt.Errorf("tree %d leaf %d probability %v outside [0,1]", t, i, node.Value)
				}
				continue
			}
			if node.Feature < 0 || (m.NumFeatures > 0 && node.Feature >= m.NumFeatures) {
				return fmt.Errorf("tree %d node %d splits on invalid feature %d", t, i, node.Feature)
			}
			// children always sit after their parent, which rules out cycles
			for _, child := range []int{node.Left, node.Right} {
				if child <= i || child >= len(tree.Nodes) {
					return fmt.Errorf("tree %d node %d has invalid child %d", t, i, child)
				}
			}
		}
	}
	return nil
}

// Features returns the expected input width, or 0 when the artifact does not declare it
func (m *TreeEnsemble) Features() int {
	return m.NumFeatures
}

// PredictProba returns [P(REAL), P(FAKE)]
func (m *TreeEnsemble) PredictProba(x adapters.SparseVector) ([]float64, error) {
	leaves := make([]float64, len(m.Trees))
	for i := range m.Trees {
		leaves[i] = m.Trees[i].evaluate(x)
	}

	switch m.Aggregation {
	case AggregateMeanProba:
		p, err := stats.Mean(leaves)
		if err != nil {
			return nil, fmt.Errorf("average tree votes: %w", err)
		}
		return binaryProba(p), nil
	case AggregateLogitSum:
		margin, err := stats.Sum(leaves)
		if err != nil {
			return nil, fmt.Errorf("sum tree margins: %w", err)
		}
		return binaryProba(sigmoid(m.BaseScore + margin)), nil
	default:
		return nil, fmt.Errorf("unknown aggregation %q", m.Aggregation)
	}
}

// evaluate walks from the root to a leaf. Absent features read as zero.
func (t *Tree) evaluate(x adapters.SparseVector) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		node := t.Nodes[i]
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
	return t.Nodes[i].Value
}
