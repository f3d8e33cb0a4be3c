package photos

import (
	"fmt"
	"strings"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
)

const keyPrefix = "properties"

// BuildStorageKey returns the canonical object key for a photo. The photo
// id prefix keeps two uploads of the same filename from colliding.
func BuildStorageKey(propertyID, photoID, sanitizedName string) string {
	return fmt.Sprintf("%s/%s/%s-%s", keyPrefix, propertyID, photoID, sanitizedName)
}

// PropertyIDFromKey extracts the owning property id from a storage key of
// the form properties/{propertyID}/... .
func PropertyIDFromKey(key string) (string, error) {
	parts := strings.Split(key, "/")
	if len(parts) < 2 || parts[0] != keyPrefix || parts[1] == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("storage key %q does not match properties/{propertyId}/...", key))
	}
	return parts[1], nil
}
