// Package attachment holds the admission rules shared by application and
// complaint uploads.
package attachment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/garyjia/benefits-portal/internal/domain/entity"
)

// MaxSizeBytes is the largest accepted upload (10 MiB)
const MaxSizeBytes int64 = 10 * 1024 * 1024

// Rejection reasons
const (
	ReasonFormat      = "format"
	ReasonSize        = "size"
	ReasonNotUploaded = "not_uploaded"
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"docx": true,
	"pdf":  true,
}

var allowedMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/pdf": true,
}

// Decision is the admission outcome for one file
type Decision struct {
	Meta     entity.AttachmentMeta `json:"meta"`
	Accepted bool                  `json:"accepted"`
	Reasons  []string              `json:"reasons,omitempty"`
}

// Reason joins the rejection reasons, e.g. "format,size"
func (d Decision) Reason() string {
	return strings.Join(d.Reasons, ",")
}

// Rejection is a file refused during batch admission
type Rejection struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail"`
}

// Extension returns the lower-cased extension of fileName without the dot
func Extension(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}

// normalizeMime drops parameters such as "; charset=binary"
func normalizeMime(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Validate decides one file: the extension or the MIME type must be allowed,
// and the size must not exceed MaxSizeBytes. Both failures are reported.
func Validate(meta entity.AttachmentMeta) Decision {
	d := Decision{Meta: meta}

	if !allowedExtensions[Extension(meta.FileName)] && !allowedMimeTypes[normalizeMime(meta.MimeType)] {
		d.Reasons = append(d.Reasons, ReasonFormat)
	}
	if meta.SizeBytes < 0 || meta.SizeBytes > MaxSizeBytes {
		d.Reasons = append(d.Reasons, ReasonSize)
	}

	d.Accepted = len(d.Reasons) == 0
	return d
}

// Admit splits a batch into accepted files and per-file rejections.
// One bad file never blocks the others.
func Admit(files []entity.AttachmentMeta) ([]entity.AttachmentMeta, []Rejection) {
	accepted := make([]entity.AttachmentMeta, 0, len(files))
	var rejected []Rejection

	for _, f := range files {
		d := Validate(f)
		if d.Accepted {
			accepted = append(accepted, f)
			continue
		}
		rejected = append(rejected, Rejection{
			FileName: f.FileName,
			Reason:   d.Reason(),
			Detail:   describe(d),
		})
	}

	return accepted, rejected
}

// AdmitRefs is Admit for stored references
func AdmitRefs(refs []entity.AttachmentRef) ([]entity.AttachmentRef, []Rejection) {
	accepted := make([]entity.AttachmentRef, 0, len(refs))
	var rejected []Rejection

	for _, ref := range refs {
		d := Validate(ref.Meta())
		if d.Accepted {
			accepted = append(accepted, ref)
			continue
		}
		rejected = append(rejected, Rejection{FileName: ref.FileName, Reason: d.Reason(), Detail: describe(d)})
	}

	return accepted, rejected
}

func describe(d Decision) string {
	parts := make([]string, 0, len(d.Reasons))
	for _, r := range d.Reasons {
		switch r {
		case ReasonFormat:
			parts = append(parts, "only png, jpg, jpeg, docx and pdf files are accepted")
		case ReasonSize:
			parts = append(parts, fmt.Sprintf("file exceeds %d MB", MaxSizeBytes/(1024*1024)))
		}
	}
	return strings.Join(parts, "; ")
}

type dedupeKey struct {
	name string
	size int64
}

// Merge appends incoming refs to existing, keeping the first occurrence of
// each (file_name, size_bytes) pair. Existing order is preserved.
func Merge(existing, incoming []entity.AttachmentRef) []entity.AttachmentRef {
	seen := make(map[dedupeKey]bool, len(existing)+len(incoming))
	merged := make([]entity.AttachmentRef, 0, len(existing)+len(incoming))

	for _, list := range [][]entity.AttachmentRef{existing, incoming} {
		for _, ref := range list {
			k := dedupeKey{name: ref.FileName, size: ref.SizeBytes}
			if seen[k] {
				continue
			}
			seen[k] = true
			merged = append(merged, ref)
		}
	}

	return merged
}
