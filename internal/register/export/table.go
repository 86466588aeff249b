// Package export renders register collections as spreadsheet files.
package export

import (
	"errors"
	"time"

	"github.com/BrandonDHaskell/registre/internal/register/types"
)

// ErrNoRows is returned for an empty collection; nothing is produced.
var ErrNoRows = errors.New("nothing to export")

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

type Kind string

const (
	KindVisitors Kind = "visitors"
	KindEvents   Kind = "events"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Table is a header row plus data rows of the same width.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]string
}

var visitorHeaders = []string{
	"Nom", "Email", "Téléphone", "Société", "Numéro de badge",
	"Date", "Heure", "Motif", "Détails du motif", "Notes",
}

var eventHeaders = []string{
	"Date", "Personne", "Type", "Description", "Statut",
	"Résolu le", "Résolu par", "Créé le",
}

// VisitorTable lays out visitors in the given order. Dates are shown in loc.
func VisitorTable(vs []types.Visitor, loc *time.Location) Table {
	t := Table{Sheet: "Visiteurs", Headers: visitorHeaders}
	for _, v := range vs {
		t.Rows = append(t.Rows, []string{
			v.Name,
			v.Email,
			v.Phone,
			v.Company,
			v.BadgeNumber,
			formatDate(v.Date, loc),
			v.Time,
			v.Purpose.Label(),
			v.PurposeDetails,
			v.Notes,
		})
	}
	return t
}

func EventTable(es []types.TraceabilityEvent, loc *time.Location) Table {
	t := Table{Sheet: "Traçabilité", Headers: eventHeaders}
	for _, e := range es {
		t.Rows = append(t.Rows, []string{
			formatDate(e.Date, loc),
			e.VisitorName,
			e.Kind.Label(),
			e.Description,
			e.Status.Label(),
			formatStamp(e.ResolvedAt, dateLayout, loc),
			e.ResolvedBy,
			formatStamp(e.CreatedAt, dateTimeLayout, loc),
		})
	}
	return t
}

// Filename is the download name for kind exported on day.
func Filename(kind Kind, format Format, day time.Time) string {
	base := "visiteurs"
	if kind == KindEvents {
		base = "traceabilite"
	}
	return base + "-" + day.Format(time.DateOnly) + "." + string(format)
}

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(orLocal(loc)).Format(dateLayout)
}

func formatStamp(s, layout string, loc *time.Location) string {
	if s == "" {
		return ""
	}
	t, ok := types.ParseDate(s, loc)
	if !ok {
		return s
	}
	return t.In(orLocal(loc)).Format(layout)
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
