package entity

import "github.com/google/uuid"

// Document identifies one ingested file. Created at upload time outside this
// engine; read-only here.
type Document struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	MediaType   string     `json:"media_type"`
	StoragePath string     `json:"storage_path"`
	DocTypeID   *uuid.UUID `json:"doc_type_id,omitempty"`
}
