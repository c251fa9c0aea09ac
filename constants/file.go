package constants

import "strings"

// FileTypes holds the formats the extraction engine understands.
var FileTypes = []string{"PDF", "IMAGE"}

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// MapMediaTypeToFormat resolves a declared media type to an engine format.
// Returns "" for anything the engine cannot acquire text from.
func MapMediaTypeToFormat(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	switch {
	case mt == "application/pdf":
		return PDF
	case strings.HasPrefix(mt, "image/"):
		return IMAGE
	default:
		return ""
	}
}
