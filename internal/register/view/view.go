// Package view holds the read-side transformations the register's lists are
// built from. Nothing here mutates its input.
package view

import (
	"slices"
	"strings"
	"time"

	"github.com/BrandonDHaskell/registre/internal/register/types"
)

// All matches every status or kind in an EventQuery.
const All = "all"

// Dated is anything ordered by a calendar date.
type Dated interface {
	When() time.Time
}

// SortByDateDescending returns a copy of xs, most recent first. Equal dates
// keep their original relative order.
func SortByDateDescending[T Dated](xs []T) []T {
	out := slices.Clone(xs)
	slices.SortStableFunc(out, func(a, b T) int {
		return b.When().Compare(a.When())
	})
	return out
}

// FilterVisitors is the list view's inline filter: name, company, purpose
// label, purpose details and badge number.
func FilterVisitors(vs []types.Visitor, q string) []types.Visitor {
	return filter(vs, q, func(v types.Visitor) []string {
		return []string{v.Name, v.Company, v.Purpose.Label(), v.PurposeDetails, v.BadgeNumber}
	})
}

// SearchVisitors matches everything FilterVisitors does plus the email.
func SearchVisitors(vs []types.Visitor, q string) []types.Visitor {
	return filter(vs, q, func(v types.Visitor) []string {
		return []string{v.Name, v.Company, v.Email, v.BadgeNumber, v.Purpose.Label(), v.PurposeDetails}
	})
}

type EventQuery struct {
	Text   string
	Status string // "", "all", "open" or "resolved"
	Kind   string // "", "all" or an event kind
}

func FilterEvents(es []types.TraceabilityEvent, q EventQuery) []types.TraceabilityEvent {
	byText := filter(es, q.Text, func(e types.TraceabilityEvent) []string {
		return []string{e.VisitorName, e.Description}
	})
	out := byText[:0:0]
	for _, e := range byText {
		if matchesAll(q.Status, string(e.Status)) && matchesAll(q.Kind, string(e.Kind)) {
			out = append(out, e)
		}
	}
	return out
}

func matchesAll(want, got string) bool {
	return want == "" || want == All || want == got
}

func filter[T any](xs []T, q string, fields func(T) []string) []T {
	if q == "" {
		return slices.Clone(xs)
	}
	needle := strings.ToLower(q)

	out := make([]T, 0, len(xs))
	for _, x := range xs {
		for _, f := range fields(x) {
			if f != "" && strings.Contains(strings.ToLower(f), needle) {
				out = append(out, x)
				break
			}
		}
	}
	return out
}
