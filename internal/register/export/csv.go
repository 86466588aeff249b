package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

var bom = []byte{0xef, 0xbb, 0xbf}

// WriteCSV writes t as semicolon-separated UTF-8 text with a byte-order mark.
// A cell is quoted only when it holds a semicolon, a double quote or a
// newline.
func WriteCSV(w io.Writer, t Table) error {
	if len(t.Rows) == 0 {
		return ErrNoRows
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(bom); err != nil {
		return errors.Wrap(err, "write bom")
	}
	writeRow(bw, t.Headers)
	for _, row := range t.Rows {
		writeRow(bw, row)
	}
	return errors.Wrap(bw.Flush(), "flush csv")
}

func writeRow(w *bufio.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			w.WriteByte(';')
		}
		w.WriteString(escape(c))
	}
	w.WriteByte('\n')
}

func escape(cell string) string {
	if !strings.ContainsAny(cell, ";\"\n") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
