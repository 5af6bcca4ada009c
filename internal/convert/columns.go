package convert

import (
	"fmt"
	"strings"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/model"
)

// Role is the meaning of a spreadsheet column.
type Role string

const (
	RoleName         Role = "name"
	RolePhone        Role = "phone"
	RoleEmail        Role = "email"
	RoleOrganization Role = "organization"
)

// roleKeywords lists the header keywords of each role in priority order. A header that contains
// keywords of several roles gets the first of those roles.
var roleKeywords = []struct {
	role     Role
	keywords []string
}{
	{RoleName, []string{"nama", "name", "contact"}},
	{RolePhone, []string{"nomor", "phone", "telepon", "hp", "wa"}},
	{RoleEmail, []string{"email", "mail"}},
	{RoleOrganization, []string{"organisasi", "company", "perusahaan", "office"}},
}

// Columns maps each detected role to its 0-based column index. Undetected roles are absent.
type Columns map[Role]int

// MissingColumnsError is returned by DetectColumns when the name or phone column is not found.
type MissingColumnsError struct {
	Missing []Role
}

func (e *MissingColumnsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		names[i] = string(r)
	}
	return fmt.Sprintf("missing required columns: %s", strings.Join(names, ", "))
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrMissingRequiredColumns
}

// DetectColumns assigns roles to the columns of a spreadsheet header by case-insensitive keyword
// matching. If several columns match the same role, the rightmost one is used. The returned
// error is a *MissingColumnsError if the name or phone role could not be assigned.
func DetectColumns(header []string) (Columns, error) {
	columns := Columns{}
	for i, cell := range header {
		h := strings.ToLower(strings.TrimSpace(cell))
		if h == "" {
			continue
		}
		for _, rk := range roleKeywords {
			if containsAny(h, rk.keywords) {
				columns[rk.role] = i
				break
			}
		}
	}
	var missing []Role
	for _, required := range []Role{RoleName, RolePhone} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return columns, &MissingColumnsError{Missing: missing}
	}
	return columns, nil
}

// ParseRow builds a contact from one spreadsheet data row. Cells outside the row read as empty.
// The returned contact is not validated.
func ParseRow(row []string, columns Columns) *model.Contact {
	contact := &model.Contact{
		Name:  cell(row, columns, RoleName),
		Phone: cell(row, columns, RolePhone),
	}
	contact.Email = model.Optional(cell(row, columns, RoleEmail))
	contact.Organization = model.Optional(cell(row, columns, RoleOrganization))
	return contact
}

// parseRows treats the first row as the header and every following non-blank row as a contact.
func parseRows(rows [][]string) ([]candidate, error) {
	if len(rows) < 2 {
		return nil, ErrEmptyInput
	}
	columns, err := DetectColumns(rows[0])
	if err != nil {
		return nil, err
	}
	var candidates []candidate
	for i := 1; i < len(rows); i++ {
		if blankRow(rows[i]) {
			continue
		}
		candidates = append(candidates, candidate{index: i, contact: ParseRow(rows[i], columns)})
	}
	return candidates, nil
}

func cell(row []string, columns Columns, role Role) string {
	i, ok := columns[role]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
