package retriever

import "math"

// PrecisionAtK is the share of retrieved items that are relevant.
func PrecisionAtK(retrieved, relevant []string) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	relevantSet := make(map[string]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	hits := 0
	for _, r := range retrieved {
		if relevantSet[r] {
			hits++
		}
	}
	return float64(hits) / float64(len(retrieved))
}

// RecallAtK is the share of relevant items that were retrieved.
func RecallAtK(retrieved, relevant []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	retrievedSet := make(map[string]bool)
	for _, r := range retrieved {
		retrievedSet[r] = true
	}
	hits := 0
	for _, r := range relevant {
		if retrievedSet[r] {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// ReciprocalRank returns 1/rank of the first relevant item, or 0.
func ReciprocalRank(retrieved, relevant []string) float64 {
	relevantSet := make(map[string]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	for i, r := range retrieved {
		if relevantSet[r] {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// NDCG compares the discounted gain of scores with that of ideal.
func NDCG(scores, ideal []float64) float64 {
	dcg := calculateDCG(scores)
	idcg := calculateDCG(ideal)
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// BinaryGains maps retrieved items to 1 when relevant and 0 otherwise, and
// returns the ideal gains for the same cutoff.
func BinaryGains(retrieved, relevant []string) (gains, ideal []float64) {
	relevantSet := make(map[string]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	gains = make([]float64, len(retrieved))
	for i, r := range retrieved {
		if relevantSet[r] {
			gains[i] = 1
		}
	}
	ideal = make([]float64, len(retrieved))
	for i := 0; i < len(ideal) && i < len(relevantSet); i++ {
		ideal[i] = 1
	}
	return gains, ideal
}

func calculateDCG(scores []float64) float64 {
	dcg := 0.0
	for i, score := range scores {
		dcg += score / math.Log2(float64(i+2))
	}
	return dcg
}
