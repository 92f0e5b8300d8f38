package models

import "time"

// Dilution-relevant registration form types
const (
	FormS1    = "S-1"
	FormS3    = "S-3"
	Form424B5 = "424B5"
)

// DilutionForms lists the form types considered by the dilution search
var DilutionForms = []string{FormS1, FormS3, Form424B5}

// Filing is one registration filing returned by the filings search provider
type Filing struct {
	FormType             string    `json:"form_type"`
	MaxSharesOffered     float64   `json:"max_shares_offered"`
	SharesPreviouslySold float64   `json:"shares_previously_sold"`
	FiledAt              time.Time `json:"filed_at"`
}

// IsDilutionForm reports whether formType is one of DilutionForms
func IsDilutionForm(formType string) bool {
	for _, f := range DilutionForms {
		if f == formType {
			return true
		}
	}
	return false
}
