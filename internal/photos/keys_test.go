package photos

import (
	"testing"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
)

func TestBuildStorageKey(t *testing.T) {
	t.Parallel()

	got := BuildStorageKey("prop-1", "photo-9", "a.jpg")
	want := "properties/prop-1/photo-9-a.jpg"
	if got != want {
		t.Fatalf("BuildStorageKey = %q, want %q", got, want)
	}
}

func TestPropertyIDFromKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{"canonical", "properties/prop-1/photo-9-a.jpg", "prop-1", false},
		{"extra segments", "properties/prop-1/nested/deep.jpg", "prop-1", false},
		{"wrong prefix", "uploads/prop-1/a.jpg", "", true},
		{"missing property", "properties/", "", true},
		{"bare", "a.jpg", "", true},
		{"empty", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PropertyIDFromKey(tc.key)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.key)
				}
				if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PropertyIDFromKey(%q): %v", tc.key, err)
			}
			if got != tc.want {
				t.Fatalf("PropertyIDFromKey(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}
