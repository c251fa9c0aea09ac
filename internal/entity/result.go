package entity

import (
	"github.com/google/uuid"

	"github.com/bregovic/docmeta/constants"
)

// Rect is a pixel rectangle on the rasterized page image.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ExtractionResult is the engine's output unit: one best-effort value for one
// attribute, labelled with the rule that produced it. Results are produced
// fresh on every run; nothing is persisted by the engine.
type ExtractionResult struct {
	AttributeID uuid.UUID            `json:"attribute_id"`
	Code        string               `json:"code,omitempty"`
	Name        string               `json:"name"`
	Value       any                  `json:"value"`
	Confidence  constants.Confidence `json:"confidence"`
	Strategy    string               `json:"strategy"`
	Source      *Rect                `json:"source,omitempty"`
}
