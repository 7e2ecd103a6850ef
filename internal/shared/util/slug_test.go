package util

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Acme Inc.", "acme-inc"},
		{"  Hello   World  ", "hello-world"},
		{"Ünïcode & Co", "n-code-co"},
		{"---", ""},
		{"Team 42", "team-42"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
