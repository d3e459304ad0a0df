package source

import (
	"os"
	"path/filepath"
	"testing"
)

func writeContactFile(t *testing.T, content string) *ContactFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return NewContactFile(path)
}

func TestContactFileParsing(t *testing.T) {
	cf := writeContactFile(t, `[
		{"name": "Alice Jones", "phones": ["+1 (212) 555-1234", "+1 (212) 555-1234"], "emails": ["alice@example.com"]},
		{"name": "Bob", "phone": "5551234567", "email": "Bob@Example.org"},
		{"name": "", "phones": [], "emails": []},
		{"name": "Name Only"}
	]`)

	contacts, err := cf.Contacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 3 {
		t.Fatalf("got %d contacts, expected 3 (fully empty record skipped)", len(contacts))
	}

	if contacts[0].Name != "Alice Jones" {
		t.Errorf("name = %q", contacts[0].Name)
	}
	if len(contacts[0].Phones) != 1 {
		t.Errorf("phones = %v, expected duplicate collapsed", contacts[0].Phones)
	}
	if len(contacts[0].Emails) != 1 {
		t.Errorf("emails = %v", contacts[0].Emails)
	}

	// Single-value fields accepted alongside list forms.
	if len(contacts[1].Phones) != 1 || contacts[1].Phones[0] != "5551234567" {
		t.Errorf("singular phone field: %v", contacts[1].Phones)
	}
	if len(contacts[1].Emails) != 1 {
		t.Errorf("singular email field: %v", contacts[1].Emails)
	}

	if contacts[2].Name != "Name Only" {
		t.Errorf("name-only record = %q", contacts[2].Name)
	}
}

func TestContactFileMissing(t *testing.T) {
	cf := NewContactFile(filepath.Join(t.TempDir(), "nope.json"))
	if _, err := cf.Contacts(); err == nil {
		t.Error("missing file should be a real error, not empty data")
	}
}

func TestContactFileMalformed(t *testing.T) {
	cf := writeContactFile(t, `{"not": "an array"}`)
	if _, err := cf.Contacts(); err == nil {
		t.Error("malformed file should error")
	}
}
