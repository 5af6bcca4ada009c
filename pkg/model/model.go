package model

// ConversionSummary is the JSON body that describes the outcome of a conversion. It is returned
// when no valid contacts were found, and its counts are also sent as response headers along with
// a converted document.
type ConversionSummary struct {
	Direction string        `json:"direction"`
	FileName  string        `json:"filename"`
	Encoding  string        `json:"encoding,omitempty"`
	Total     int           `json:"total"`
	Converted int           `json:"converted"`
	Skipped   []SkippedUnit `json:"skipped,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// SkippedUnit names a line, row or card of the input that did not yield a contact.
type SkippedUnit struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// UserCount is the response of the endpoint that counts authorized users.
type UserCount struct {
	Total int64 `json:"total"`
}

// Response headers that accompany a converted document.
const (
	HeaderTotal     = "X-Contacts-Total"
	HeaderConverted = "X-Contacts-Converted"
	HeaderSkipped   = "X-Contacts-Skipped"
	HeaderUserId    = "X-User-Id"
)
