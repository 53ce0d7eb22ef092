package port

import "context"

// BlobStore keeps uploaded file content under opaque identifiers
type BlobStore interface {
	Put(ctx context.Context, content []byte) (id string, err error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// ContentSniffer detects the MIME type of file content
type ContentSniffer interface {
	Detect(content []byte) string
}
