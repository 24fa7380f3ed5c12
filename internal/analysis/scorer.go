package analysis

import (
	"math"

	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
	"github.com/montanaflynn/stats"
)

const (
	// AutoPublishThreshold is the minimum trust score for automatic publication
	AutoPublishThreshold = 80

	// neutralConfidence is used when no model produced a result
	neutralConfidence = 50.0

	minTrust = 0.0
	maxTrust = 100.0
)

// tally counts weighted votes across a result set
type tally struct {
	fake, total int
}

func countVotes(results types.ResultSet) tally {
	var t tally
	for _, r := range results.Entries() {
		w := r.Kind.VoteWeight()
		t.total += w
		if r.Label == types.LabelFake {
			t.fake += w
		}
	}
	return t
}

// consensusLabel is FAKE only on a strict majority of weighted votes
func consensusLabel(t tally) types.Label {
	if 2*t.fake > t.total {
		return types.LabelFake
	}
	return types.LabelReal
}

// weightedConfidences expands each result into VoteWeight copies of its confidence
func weightedConfidences(results types.ResultSet) []float64 {
	confidences := make([]float64, 0, results.Len()+1)
	for _, r := range results.Entries() {
		for i := 0; i < r.Kind.VoteWeight(); i++ {
			confidences = append(confidences, r.Confidence)
		}
	}
	return confidences
}

// WeightedConfidence is the mean of the weighted confidence list, or 50 when empty
func WeightedConfidence(results types.ResultSet) float64 {
	mean, err := stats.Mean(weightedConfidences(results))
	if err != nil {
		return neutralConfidence
	}
	return mean
}

// TrustScore maps a consensus and weighted confidence to a bounded integer
// score expressing confidence that the article is genuine.
func TrustScore(consensus types.Label, weightedConfidence float64) int {
	trust := weightedConfidence
	if consensus == types.LabelFake {
		trust = 100 - weightedConfidence
	}
	if math.IsNaN(trust) {
		trust = neutralConfidence
	}
	return int(math.Round(clip(trust, minTrust, maxTrust)))
}

// Score fuses a result set into a consensus label and trust score. An empty
// set yields {REAL, 50}.
func Score(results types.ResultSet) types.ConsensusOutcome {
	label := consensusLabel(countVotes(results))
	return types.ConsensusOutcome{
		Label:      label,
		TrustScore: TrustScore(label, WeightedConfidence(results)),
	}
}

// ShouldAutoPublish applies the fixed publication gate
func ShouldAutoPublish(trustScore int) bool {
	return trustScore >= AutoPublishThreshold
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
