package types

import "time"

// VisitorDraft is a recoverable snapshot of the visitor form. Every field is
// optional; a nil field leaves the live form value untouched on restore.
type VisitorDraft struct {
	Name           *string    `json:"name,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Company        *string    `json:"company,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	Purpose        *Purpose   `json:"purpose,omitempty"`
	PurposeDetails *string    `json:"purpose_details,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	Time           *string    `json:"time,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	BadgeNumber    *string    `json:"badge_number,omitempty"`
	Signature      *string    `json:"signature,omitempty"`
}

// VisitorDraftOf takes a full snapshot of the form.
func VisitorDraftOf(f VisitorForm) VisitorDraft {
	return VisitorDraft{
		Name:           ptr(f.Name),
		Email:          ptr(f.Email),
		Company:        ptr(f.Company),
		Phone:          ptr(f.Phone),
		Purpose:        ptr(f.Purpose),
		PurposeDetails: ptr(f.PurposeDetails),
		Date:           datePtr(f.Date),
		Time:           ptr(f.Time),
		Notes:          ptr(f.Notes),
		BadgeNumber:    ptr(f.BadgeNumber),
		Signature:      ptr(f.Signature),
	}
}

// ApplyTo copies every present field onto f.
func (d VisitorDraft) ApplyTo(f *VisitorForm) {
	set(&f.Name, d.Name)
	set(&f.Email, d.Email)
	set(&f.Company, d.Company)
	set(&f.Phone, d.Phone)
	set(&f.Purpose, d.Purpose)
	set(&f.PurposeDetails, d.PurposeDetails)
	set(&f.Date, d.Date)
	set(&f.Time, d.Time)
	set(&f.Notes, d.Notes)
	set(&f.BadgeNumber, d.BadgeNumber)
	set(&f.Signature, d.Signature)
}

type EventDraft struct {
	VisitorID   *string    `json:"visitor_id,omitempty"`
	VisitorName *string    `json:"visitor_name,omitempty"`
	Kind        *EventKind `json:"event_type,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

func EventDraftOf(f EventForm) EventDraft {
	return EventDraft{
		VisitorID:   ptr(f.VisitorID),
		VisitorName: ptr(f.VisitorName),
		Kind:        ptr(f.Kind),
		Description: ptr(f.Description),
		Date:        datePtr(f.Date),
	}
}

func (d EventDraft) ApplyTo(f *EventForm) {
	set(&f.VisitorID, d.VisitorID)
	set(&f.VisitorName, d.VisitorName)
	set(&f.Kind, d.Kind)
	set(&f.Description, d.Description)
	set(&f.Date, d.Date)
}

func ptr[T any](v T) *T { return &v }

func datePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
