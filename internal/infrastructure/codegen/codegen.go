// Package codegen produces the human-readable codes printed on receipts and
// quoted by citizens on the phone.
package codegen

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ApplicationPrefix = "HS"
	ComplaintPrefix   = "KN"
	BatchPrefix       = "PB"
)

// Generator builds codes of the form PREFIX-YYYYMMDD-XXXXXXXX, where the
// suffix is taken from a random UUID. Uniqueness is finally enforced by the
// database.
type Generator struct {
	now func() time.Time
}

// New creates a generator using the wall clock
func New() *Generator {
	return &Generator{now: time.Now}
}

// ApplicationCode returns a new application code
func (g *Generator) ApplicationCode() string {
	return g.code(ApplicationPrefix)
}

// ComplaintCode returns a new complaint code
func (g *Generator) ComplaintCode() string {
	return g.code(ComplaintPrefix)
}

// BatchCode returns a new payout batch code
func (g *Generator) BatchCode() string {
	return g.code(BatchPrefix)
}

func (g *Generator) code(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return prefix + "-" + g.now().Format("20060102") + "-" + suffix
}
