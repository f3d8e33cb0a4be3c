package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many rows any paged query can request.
	MaxLimit = 100
)

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeToken builds an opaque continuation token from a key attribute name
// and the last evaluated value for it.
func EncodeToken(attribute, value string) string {
	if value == "" {
		return ""
	}
	payload := fmt.Sprintf("%s|%s", attribute, value)
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// ParseToken decodes a continuation token back into its key attribute and
// value. An empty token is not an error; it means "start from the beginning".
func ParseToken(token string) (attribute, value string, err error) {
	if strings.TrimSpace(token) == "" {
		return "", "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("decode continuation token: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid continuation token format")
	}
	return parts[0], parts[1], nil
}
