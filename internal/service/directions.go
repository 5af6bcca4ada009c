package service

import (
	"path"
	"regexp"
	"strings"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/convert"
)

// Direction describes one kind of conversion a user can request.
type Direction struct {
	Name       string
	Source     convert.Format
	Target     convert.Format
	Extensions []string
	OwnerOnly  bool
}

// directions are all conversions offered by the service, by name. The name also serves as the
// operation type in the audit log.
var directions = map[string]Direction{
	"txt_to_vcf": {
		Name: "txt_to_vcf", Source: convert.FormatText, Target: convert.FormatVCard,
		Extensions: []string{".txt"},
	},
	"txt2vcf": {
		Name: "txt2vcf", Source: convert.FormatText, Target: convert.FormatVCard,
		Extensions: []string{".txt", ".csv"},
	},
	"vcf_to_txt": {
		Name: "vcf_to_txt", Source: convert.FormatVCard, Target: convert.FormatText,
		Extensions: []string{".vcf"},
	},
	"xlsx_to_vcf": {
		Name: "xlsx_to_vcf", Source: convert.FormatSpreadsheet, Target: convert.FormatVCard,
		Extensions: []string{".xlsx", ".xls", ".csv"},
	},
	"admin_file": {
		Name: "admin_file", Source: convert.FormatText, Target: convert.FormatVCard,
		Extensions: []string{".txt"}, OwnerOnly: true,
	},
}

// allowedExtensions are the file types the service accepts at all.
var allowedExtensions = []string{".txt", ".vcf", ".xlsx", ".xls", ".csv"}

// unsafeFileNameChars matches everything that must not appear in a file name we hand out.
var unsafeFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// LookupDirection returns the direction with the given name.
func LookupDirection(name string) (Direction, bool) {
	d, ok := directions[name]
	return d, ok
}

// Accepts returns true if the file name carries an extension this direction can read.
func (d Direction) Accepts(fileName string) bool {
	ext := strings.ToLower(path.Ext(fileName))
	return contains(allowedExtensions, ext) && contains(d.Extensions, ext)
}

// SanitizeFileName strips any directory part from an uploaded file name and replaces all
// characters outside of [a-zA-Z0-9._-] with an underscore.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFileNameChars.ReplaceAllString(name, "_")
	if strings.Trim(name, ".") == "" {
		return "contacts"
	}
	return name
}

// OutputFileName derives the name of the converted document from the name of the uploaded file.
func OutputFileName(inputName string, target convert.Format) string {
	name := SanitizeFileName(inputName)
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = "contacts"
	}
	if target == convert.FormatVCard {
		return base + "_converted.vcf"
	}
	return base + "_converted.txt"
}

// contains returns true if a string is present in a slice.
func contains(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}
