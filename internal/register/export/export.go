package export

import (
	"io"

	"github.com/pkg/errors"
)

// Write renders t in the requested format.
func Write(w io.Writer, format Format, t Table) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	default:
		return errors.Errorf("unknown export format %q", format)
	}
}

// ContentType is the media type served for format.
func ContentType(format Format) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ParseFormat accepts "csv", "xlsx" or "" (csv).
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, true
	case FormatXLSX:
		return FormatXLSX, true
	default:
		return "", false
	}
}
