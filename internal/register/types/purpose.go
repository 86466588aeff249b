package types

// Purpose is the reason given for a visit.
type Purpose string

const (
	PurposeMeeting   Purpose = "meeting"
	PurposeInterview Purpose = "interview"
	PurposeBadgeLoss Purpose = "badge_loss"
	PurposeDelivery  Purpose = "delivery"
	PurposeWorks     Purpose = "works"
	PurposeOther     Purpose = "other"
)

// Purposes lists every purpose in display order.
var Purposes = []Purpose{
	PurposeMeeting,
	PurposeInterview,
	PurposeBadgeLoss,
	PurposeDelivery,
	PurposeWorks,
	PurposeOther,
}

var purposeLabels = map[Purpose]string{
	PurposeMeeting:   "Réunion",
	PurposeInterview: "Entretien",
	PurposeBadgeLoss: "Perte de badge",
	PurposeDelivery:  "Livraison",
	PurposeWorks:     "Travaux",
	PurposeOther:     "Autre",
}

func (p Purpose) Valid() bool {
	_, ok := purposeLabels[p]
	return ok
}

// Label returns the desk-facing label, or the raw value for unknown purposes.
func (p Purpose) Label() string {
	if l, ok := purposeLabels[p]; ok {
		return l
	}
	return string(p)
}
