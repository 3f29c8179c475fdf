package files

import (
	"testing"

	"github.com/EgorLis/my-files/internal/domain"
)

func TestSplitName(t *testing.T) {
	cases := []struct {
		in, name, ext string
	}{
		{"a.txt", "a", ".txt"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"noext", "noext", ""},
		{".env", ".env", ""},
		{"dir/inside.txt", "inside", ".txt"},
		{"..\\windows\\path.doc", "path", ".doc"},
		{"weird.averylongextension", "weird.averylongextension", ""},
		{"отчёт.txt", "отчёт", ".txt"},
	}
	for _, tc := range cases {
		name, ext := splitName(tc.in)
		if name != tc.name || ext != tc.ext {
			t.Errorf("splitName(%q): want (%q, %q), got (%q, %q)", tc.in, tc.name, tc.ext, name, ext)
		}
	}
}

func TestEncodeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"with space", "with%20space"},
		{"keep-_.!~*'()", "keep-_.!~*'()"},
		{"a+b&c", "a%2Bb%26c"},
		{"отчёт", "%D0%BE%D1%82%D1%87%D1%91%D1%82"},
	}
	for _, tc := range cases {
		if got := encodeName(tc.in); got != tc.want {
			t.Errorf("encodeName(%q): want %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestDisposition(t *testing.T) {
	rec := domain.FileRecord{
		Name:        "a b",
		EncodedName: "a%20b",
		Extension:   ".txt",
		Size:        42,
	}
	want := "inline; filename=a b.txt; filename*=UTF-8''a%20b.txt; size=42"
	if got := disposition("inline", rec); got != want {
		t.Errorf("disposition: want %q, got %q", want, got)
	}
}
