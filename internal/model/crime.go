package model

// CrimeRecord is one municipality/category incidence observation from the
// state security bulletin. Type holds the reconciled numeric category code;
// RawType preserves the label as it appeared in the source file.
type CrimeRecord struct {
	Municipality string  `json:"municipality"`
	Type         int     `json:"type"`
	RawType      string  `json:"raw_type"`
	Rate         float64 `json:"rate"`
	Period       string  `json:"period"` // YYYY-MM
}
