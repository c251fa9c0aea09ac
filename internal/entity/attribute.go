package entity

import "github.com/google/uuid"

// DataType is the declared type an attribute's value should be coerced to.
type DataType string

const (
	DataTypeText   DataType = "text"
	DataTypeNumber DataType = "number"
	DataTypeDate   DataType = "date"
)

// ScanDirection hints where a value typically sits relative to its label.
type ScanDirection string

const (
	DirectionAuto  ScanDirection = "auto"
	DirectionRight ScanDirection = "right"
	DirectionDown  ScanDirection = "down"
)

// Attribute is a named, typed field a tenant wants extracted.
// Code is a stable machine key such as INVOICE_NUMBER or SUPPLIER_ICO;
// an empty Code means generic handling only. Aliases are translated
// keyword synonyms tried after the display name.
type Attribute struct {
	ID        uuid.UUID     `json:"id"`
	TenantID  uuid.UUID     `json:"tenant_id"`
	Name      string        `json:"name"`
	Code      string        `json:"code,omitempty"`
	DataType  DataType      `json:"data_type"`
	Direction ScanDirection `json:"direction"`
	Aliases   []string      `json:"aliases,omitempty"`
}
