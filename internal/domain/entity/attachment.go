package entity

import "time"

// AttachmentRef references an uploaded file held in the blob store
type AttachmentRef struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// AttachmentMeta is the file metadata the attachment policy decides on
type AttachmentMeta struct {
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// Meta returns the policy-relevant metadata of the reference
func (a AttachmentRef) Meta() AttachmentMeta {
	return AttachmentMeta{FileName: a.FileName, MimeType: a.MimeType, SizeBytes: a.SizeBytes}
}
