package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{1, 1},
		{50, 50},
		{100, 100},
		{101, MaxLimit},
		{100000, MaxLimit},
	}
	for _, tc := range cases {
		if got := NormalizeLimit(tc.in); got != tc.want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token := EncodeToken("PhotoID", "photo-123")
	if token == "" {
		t.Fatal("expected a token")
	}
	attr, value, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if attr != "PhotoID" || value != "photo-123" {
		t.Fatalf("round trip lost data: %s %s", attr, value)
	}
}

func TestEncodeTokenEmptyValue(t *testing.T) {
	t.Parallel()

	if token := EncodeToken("PhotoID", ""); token != "" {
		t.Fatalf("empty value must produce no token, got %q", token)
	}
}

func TestParseTokenEmpty(t *testing.T) {
	t.Parallel()

	attr, value, err := ParseToken("")
	if err != nil || attr != "" || value != "" {
		t.Fatalf("empty token must mean start from the beginning: %s %s %v", attr, value, err)
	}
	if _, _, err := ParseToken("   "); err != nil {
		t.Fatalf("blank token must be accepted: %v", err)
	}
}

func TestParseTokenInvalid(t *testing.T) {
	t.Parallel()

	if _, _, err := ParseToken("%%%not-base64"); err == nil {
		t.Fatal("expected decode error")
	}
	// Valid base64, wrong shape.
	if _, _, err := ParseToken("bm90b2tlbg=="); err == nil {
		t.Fatal("expected format error")
	}
}
