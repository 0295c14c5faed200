package api

import (
	"encoding/json"
	"io"
	"net/http"
)

// decodeJSON reads a single JSON value from the request body.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return io.EOF
	}
	return json.NewDecoder(r.Body).Decode(v)
}
