package constants

// Confidence is the coarse reliability label attached to each extracted value.
// It reflects which rule produced the value, not a statistical measure.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)
