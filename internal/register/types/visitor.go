package types

import "time"

// TimeOfDayLayout is the wall-clock format used for arrival times.
const TimeOfDayLayout = "15:04"

type Visitor struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Company        string    `json:"company"`
	Phone          string    `json:"phone,omitempty"`
	Purpose        Purpose   `json:"purpose"`
	PurposeDetails string    `json:"purpose_details,omitempty"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      string    `json:"created_at"` // RFC 3339, set once at commit
	BadgeNumber    string    `json:"badge_number,omitempty"`
	Signature      string    `json:"signature,omitempty"` // data URI payload
}

func (v Visitor) When() time.Time { return v.Date }

// VisitorForm holds the live values of the registration form.
type VisitorForm struct {
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Company        string    `json:"company"`
	Phone          string    `json:"phone"`
	Purpose        Purpose   `json:"purpose"`
	PurposeDetails string    `json:"purpose_details"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time"`
	Notes          string    `json:"notes"`
	BadgeNumber    string    `json:"badge_number"`
	Signature      string    `json:"signature"`
}

// NewVisitorForm returns the values a blank form starts with.
func NewVisitorForm(now time.Time) VisitorForm {
	return VisitorForm{
		Purpose: PurposeMeeting,
		Date:    now,
		Time:    now.Format(TimeOfDayLayout),
	}
}

// Record builds an uncommitted visitor from the form. ID and CreatedAt are
// left empty until commit.
func (f VisitorForm) Record() Visitor {
	return Visitor{
		Name:           f.Name,
		Email:          f.Email,
		Company:        f.Company,
		Phone:          f.Phone,
		Purpose:        f.Purpose,
		PurposeDetails: f.PurposeDetails,
		Date:           f.Date,
		Time:           f.Time,
		Notes:          f.Notes,
		BadgeNumber:    f.BadgeNumber,
		Signature:      f.Signature,
	}
}
