package httpapi

import (
	"time"

	"github.com/BrandonDHaskell/registre/internal/register/signature"
	"github.com/BrandonDHaskell/registre/internal/register/types"
)

// Request bodies carry dates as text ("2024-03-01" or RFC 3339) so a client
// can send exactly what its date picker holds. An unreadable date is treated
// as missing and caught by validation.

// ── Visitors ─────────────────────────────────────────────────────────────────

type visitorFormBody struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Company        string `json:"company"`
	Phone          string `json:"phone"`
	Purpose        string `json:"purpose"`
	PurposeDetails string `json:"purpose_details"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Notes          string `json:"notes"`
	BadgeNumber    string `json:"badge_number"`
	Signature      string `json:"signature"`
}

func (b visitorFormBody) form(loc *time.Location) types.VisitorForm {
	date, _ := types.ParseDate(b.Date, loc)
	return types.VisitorForm{
		Name:           b.Name,
		Email:          b.Email,
		Company:        b.Company,
		Phone:          b.Phone,
		Purpose:        types.Purpose(b.Purpose),
		PurposeDetails: b.PurposeDetails,
		Date:           date,
		Time:           b.Time,
		Notes:          b.Notes,
		BadgeNumber:    b.BadgeNumber,
		Signature:      b.Signature,
	}
}

type visitorList struct {
	Visitors []types.Visitor `json:"visitors"`
	Count    int             `json:"count"`
}

// draftStatus is what a client needs for its auto-save indicator.
type draftStatus struct {
	Dirty   bool       `json:"dirty"`
	SavedAt *time.Time `json:"saved_at,omitempty"`
}

func newDraftStatus(dirty bool, savedAt time.Time) draftStatus {
	st := draftStatus{Dirty: dirty}
	if !savedAt.IsZero() {
		st.SavedAt = &savedAt
	}
	return st
}

type visitorDraftResponse struct {
	Form     types.VisitorForm `json:"form"`
	Restored bool              `json:"restored"`
	draftStatus
}

// ── Traceability ─────────────────────────────────────────────────────────────

type eventFormBody struct {
	VisitorID   string `json:"visitor_id"`
	VisitorName string `json:"visitor_name"`
	Kind        string `json:"event_type"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func (b eventFormBody) form(loc *time.Location) types.EventForm {
	date, _ := types.ParseDate(b.Date, loc)
	return types.EventForm{
		VisitorID:   b.VisitorID,
		VisitorName: b.VisitorName,
		Kind:        types.EventKind(b.Kind),
		Description: b.Description,
		Date:        date,
	}
}

type eventList struct {
	Events []types.TraceabilityEvent `json:"events"`
	Count  int                       `json:"count"`
}

type resolveBody struct {
	ResolvedBy string `json:"resolved_by"`
}

type eventDraftResponse struct {
	Form     types.EventForm `json:"form"`
	Restored bool            `json:"restored"`
	draftStatus
}

// ── Signatures ───────────────────────────────────────────────────────────────

type signatureBody struct {
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Bounds  signature.Rect    `json:"bounds"`
	Payload string            `json:"payload"` // previous payload to draw over
	Events  []signature.Event `json:"events"`
}

type signatureResponse struct {
	Payload string `json:"payload"`
	Empty   bool   `json:"empty"`
}
