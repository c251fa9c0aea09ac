package entity

import "github.com/google/uuid"

// Template is an optional structural description of a document layout.
// A nil DocTypeID means the template applies to any document type.
// AnchorText identifies the layout by substring presence in the full text;
// an empty anchor matches unconditionally.
type Template struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	Name       string     `json:"name"`
	DocTypeID  *uuid.UUID `json:"doc_type_id,omitempty"`
	AnchorText string     `json:"anchor_text"`
	Zones      []Zone     `json:"zones"`
}

// Zone is one rectangular region of a template. Bounds are fractional
// (all in [0,1] of the page image) so zones are resolution independent.
type Zone struct {
	ID       uuid.UUID `json:"id"`
	AttrCode string    `json:"attr_code"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	DataType DataType  `json:"data_type"`
	Pattern  string    `json:"pattern,omitempty"`
}
