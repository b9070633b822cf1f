package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// bufferBody reads the request body under the JSON size cap and rewinds it
// for the next handler.
func bufferBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Validation(map[string]string{"body": "must be at most " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
