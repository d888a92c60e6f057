package evidence

import "github.com/dgallion1/docaudit/internal/model"

// HighConfidenceScore is the lowest score classified as high confidence.
const HighConfidenceScore = 3

// ConfidenceFor maps a chunk score to a confidence tier. The second return
// is false for non-positive scores, which never become evidence.
func ConfidenceFor(score int) (model.Confidence, bool) {
	switch {
	case score >= HighConfidenceScore:
		return model.ConfidenceHigh, true
	case score == 2:
		return model.ConfidenceMedium, true
	case score == 1:
		return model.ConfidenceLow, true
	}
	return "", false
}

// StatusFor derives the requirement status from its candidate set.
func StatusFor(candidates []Candidate) model.Status {
	if len(candidates) == 0 {
		return model.StatusFail
	}
	for _, c := range candidates {
		if c.Confidence == model.ConfidenceHigh {
			return model.StatusPass
		}
	}
	return model.StatusPartial
}
