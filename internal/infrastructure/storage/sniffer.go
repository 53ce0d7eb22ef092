package storage

import (
	"github.com/gabriel-vasile/mimetype"

	"github.com/garyjia/benefits-portal/internal/application/port"
)

// MimeSniffer detects the content type from the leading bytes of a file
type MimeSniffer struct{}

// Detect returns the detected MIME type without parameters
func (MimeSniffer) Detect(content []byte) string {
	return mimetype.Detect(content).String()
}

// Verify interface compliance
var _ port.ContentSniffer = MimeSniffer{}
