package extract

import "testing"

func TestParseName(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		title string
		first string
		last  string
	}{
		{"title and credential stripped", "Dr. Maria Elena Garcia MD", "Dr.", "Maria Elena", "Garcia"},
		{"two tokens", "Jane Smith", "", "Jane", "Smith"},
		{"single token", "Lee", "", "Lee", ""},
		{"dotted credential", "Dr. Wei Chen DACM, L.Ac.", "Dr.", "Wei", "Chen"},
		{"hyphenated credential", "Sam Ortiz PA-C", "", "Sam", "Ortiz"},
		{"case-insensitive stripping", "dr. Anna Kovacs phd", "Dr.", "Anna", "Kovacs"},
		{"only stripped tokens", "Dr. MD", "Dr.", "", ""},
		{"empty input", "", "", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParseName(tc.raw)
			if parsed.Title != tc.title {
				t.Fatalf("title = %q, want %q", parsed.Title, tc.title)
			}
			if parsed.FirstName != tc.first {
				t.Fatalf("first = %q, want %q", parsed.FirstName, tc.first)
			}
			if parsed.LastName != tc.last {
				t.Fatalf("last = %q, want %q", parsed.LastName, tc.last)
			}
		})
	}
}

func TestParseNameFullName(t *testing.T) {
	parsed := ParseName("Dr. Maria Elena Garcia MD")
	if parsed.FullName != "Maria Elena Garcia" {
		t.Fatalf("full name = %q, want %q", parsed.FullName, "Maria Elena Garcia")
	}
}
