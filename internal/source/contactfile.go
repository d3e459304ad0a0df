package source

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ContactFile reads a JSON contacts export: an array of records each
// carrying a display name plus phone and email lists. Single-value
// "phone"/"email" fields are accepted alongside the list forms, since
// exports from different tools disagree on the shape.
type ContactFile struct {
	path string
}

// NewContactFile points at a JSON contacts export on disk. The file is
// read on every Contacts call so a rebuilt graph sees fresh data.
func NewContactFile(path string) *ContactFile {
	return &ContactFile{path: path}
}

type contactRecord struct {
	Name   string   `json:"name"`
	Phone  string   `json:"phone"`
	Email  string   `json:"email"`
	Phones []string `json:"phones"`
	Emails []string `json:"emails"`
}

// Contacts parses the export. A missing file is a real error, never
// substituted with fabricated records: the caller surfaces it as a
// degraded result.
func (c *ContactFile) Contacts() ([]Contact, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contact file: %w", err)
	}

	var records []contactRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse contact file: %w", err)
	}

	out := make([]Contact, 0, len(records))
	for _, r := range records {
		ct := Contact{Name: strings.TrimSpace(r.Name)}
		phones := r.Phones
		if r.Phone != "" {
			phones = append(phones, r.Phone)
		}
		emails := r.Emails
		if r.Email != "" {
			emails = append(emails, r.Email)
		}
		ct.Phones = dedupeStrings(phones)
		ct.Emails = dedupeStrings(emails)
		if ct.Name == "" && len(ct.Phones) == 0 && len(ct.Emails) == 0 {
			continue
		}
		out = append(out, ct)
	}
	return out, nil
}

func dedupeStrings(vals []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
