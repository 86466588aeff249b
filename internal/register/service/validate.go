package service

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	"github.com/BrandonDHaskell/registre/internal/register/signature"
	"github.com/BrandonDHaskell/registre/internal/register/types"
)

var ErrValidation = errors.New("validation failed")

// ValidationError maps form field names to the message shown next to them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type fieldErrors map[string]string

func (f fieldErrors) check(ok bool, field, msg string) {
	if !ok {
		if _, seen := f[field]; !seen {
			f[field] = msg
		}
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func atLeast(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

func ValidateVisitor(f types.VisitorForm) error {
	errs := fieldErrors{}
	errs.check(atLeast(f.Name, 2), "name", "Le nom doit contenir au moins 2 caractères")
	errs.check(govalidator.IsEmail(strings.TrimSpace(f.Email)), "email", "Email invalide")
	errs.check(atLeast(f.Company, 1), "company", "La société est requise")
	errs.check(f.Purpose.Valid(), "purpose", "Veuillez sélectionner un motif de visite")
	errs.check(!f.Date.IsZero(), "date", "La date est requise")
	errs.check(f.Time == "" || types.ValidTimeOfDay(f.Time), "time", "L'heure doit être au format HH:MM")
	if f.Signature != "" {
		_, err := signature.Decode(f.Signature)
		errs.check(err == nil, "signature", "La signature est illisible")
	}
	return errs.err()
}

func ValidateEvent(f types.EventForm) error {
	errs := fieldErrors{}
	errs.check(atLeast(f.VisitorName, 2), "visitor_name", "Le nom doit contenir au moins 2 caractères")
	errs.check(f.Kind.Valid(), "event_type", "Veuillez sélectionner un type d'événement")
	errs.check(atLeast(f.Description, 5), "description", "La description doit contenir au moins 5 caractères")
	errs.check(!f.Date.IsZero(), "date", "La date est requise")
	return errs.err()
}
