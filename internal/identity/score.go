package identity

// Confidence levels assigned by the fuzzy matcher. These constants are the
// merge recall/precision contract: a candidate merges only when its best
// score is strictly greater than MatchThreshold.
const (
	MatchThreshold  = 0.8
	ScoreLocalMatch = 0.9  // last 7 digits equal
	ScoreFullMatch  = 0.95 // both >= 10 digits and last 10 equal
)

// matchScore compares two identifiers and returns a confidence that they
// refer to the same real-world identity.
//
// Rules:
//   - different kinds never match
//   - exact key equality scores 1 (callers hit the direct-lookup path
//     before invoking this, but the rule holds)
//   - phones: equal last-7-digit suffix scores 0.9; if both sides have at
//     least 10 digits, an equal last-10 suffix scores 0.95 instead
//   - emails only match exactly; there is no partial email matching
func matchScore(a, b Identifier) float64 {
	if a.Kind != b.Kind {
		return 0
	}
	if a.Key == b.Key {
		return 1
	}
	if a.Kind != KindPhone {
		return 0
	}

	da, db := digitsOf(a.Normalized), digitsOf(b.Normalized)
	if da == "" || db == "" {
		return 0
	}

	score := 0.0
	if suffixEqual(da, db, 7) {
		score = ScoreLocalMatch
	}
	if len(da) >= 10 && len(db) >= 10 && suffixEqual(da, db, 10) {
		score = ScoreFullMatch
	}
	return score
}

func suffixEqual(a, b string, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	return a[len(a)-n:] == b[len(b)-n:]
}
