package model

import (
	"strings"
	"time"
)

// Contact is the data structure for a person parsed from an uploaded contact file. Name and Phone
// are required, the remaining fields are optional and nil when not present in the source.
type Contact struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Email        *string `json:"email,omitempty"`
	Organization *string `json:"organization,omitempty"`
}

// Valid returns true if both name and phone are non-empty after trimming. Only valid contacts are
// ever written to an output document.
func (c *Contact) Valid() bool {
	return c != nil && strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Phone) != ""
}

// Optional returns a pointer to the trimmed value, or nil if the value is blank.
func Optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// User is an entry of the allow-list of users that may use the converter.
type User struct {
	UserId    int64     `json:"id"                  db:"user_id"`
	Username  *string   `json:"username,omitempty"  db:"username"`
	FirstName *string   `json:"firstname,omitempty" db:"first_name"`
	AddedDate time.Time `json:"added"               db:"added_date"`
}

// FileOperation is one line of the audit log of conversions.
type FileOperation struct {
	Id            int64     `db:"id"`
	UserId        int64     `db:"user_id"`
	OperationType string    `db:"operation_type"`
	FileName      string    `db:"file_name"`
	Status        string    `db:"status"`
	Timestamp     time.Time `db:"timestamp"`
}

// BugReport is a free text problem description submitted by a user.
type BugReport struct {
	UserId      int64   `db:"user_id"`
	Username    *string `db:"username"`
	Description string  `db:"bug_description"`
}

// Stats summarizes the audit log of a single user.
type Stats struct {
	Total      int64 `json:"total"      db:"total_operations"`
	Successful int64 `json:"successful" db:"successful_operations"`
	Failed     int64 `json:"failed"     db:"failed_operations"`
}
