package validators

import (
	"net/http"
	"strconv"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
)

// PageParams are the common paging query parameters.
type PageParams struct {
	Limit int
	Token string
}

// ParsePageParams reads limit and token from the query string. A missing
// limit is zero; range enforcement happens in the services.
func ParsePageParams(r *http.Request) (PageParams, error) {
	params := PageParams{Token: r.URL.Query().Get("token")}
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return params, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return PageParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "limit must be an integer")
	}
	if limit < 1 || limit > 100 {
		return PageParams{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be between 1 and 100")
	}
	params.Limit = limit
	return params, nil
}
