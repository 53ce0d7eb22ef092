// Package importer reads payout reconciliation files exported by the
// disbursing bank or commune treasury.
package importer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMissingColumn is returned when a required header is absent
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyFile is returned when the file has no header row
	ErrEmptyFile = errors.New("file has no header row")
)

const (
	colBatchCode       = "batch_code"
	colApplicationCode = "application_code"
	colStatus          = "status_label"
)

// headerAliases maps normalized header text to a canonical column
var headerAliases = map[string]string{
	"batch_code":       colBatchCode,
	"batch":            colBatchCode,
	"ma_dot":           colBatchCode,
	"ma_dot_chi_tra":   colBatchCode,
	"application_code": colApplicationCode,
	"application":      colApplicationCode,
	"ma_ho_so":         colApplicationCode,
	"status":           colStatus,
	"status_label":     colStatus,
	"trang_thai":       colStatus,
}

// Parser dispatches on the file extension
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new reconciliation file parser
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse reads every data row of the file
func (p *Parser) Parse(fileName string, r io.Reader) ([]entity.PayoutStatusRow, error) {
	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		records, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}
	if err != nil {
		return nil, err
	}

	rows, err := toRows(records)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Parsed payout reconciliation file",
		zap.String("file_name", fileName),
		zap.Int("rows", len(rows)))

	return rows, nil
}

// toRows maps raw records to typed rows. The first record is the header;
// line numbers are 1-based so the header is line 1.
func toRows(records [][]string) ([]entity.PayoutStatusRow, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	columns := make(map[string]int)
	for i, h := range records[0] {
		if canonical, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = i
			}
		}
	}

	var missing []string
	for _, required := range []string{colBatchCode, colStatus} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	rows := make([]entity.PayoutStatusRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		rows = append(rows, entity.PayoutStatusRow{
			Line:            i + 2,
			BatchCode:       cell(record, columns, colBatchCode),
			ApplicationCode: cell(record, columns, colApplicationCode),
			StatusLabel:     cell(record, columns, colStatus),
		})
	}
	return rows, nil
}

func cell(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}
