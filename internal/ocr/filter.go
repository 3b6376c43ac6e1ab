package ocr

import (
	"strconv"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// ValidateThreshold checks the threshold lies in [0,100]
func ValidateThreshold(threshold int) error {
	if threshold < 0 || threshold > 100 {
		return errors.NewConfigurationError("confidence_threshold", "must be between 0 and 100, got "+strconv.Itoa(threshold))
	}
	return nil
}

// Keep is the retention rule shared by text tokens and table cells
func Keep(confidence float64, threshold int) bool {
	return confidence >= float64(threshold)
}

// Filter retains tokens whose confidence is at least threshold, preserving order
func Filter(tokens []model.Token, threshold int) ([]model.Token, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	kept := make([]model.Token, 0, len(tokens))
	for _, t := range tokens {
		if Keep(t.Confidence, threshold) {
			kept = append(kept, t)
		}
	}
	return kept, nil
}
