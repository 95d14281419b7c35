package shared

import (
	"encoding/json"
	"net/http"
)

// maxRequestBody bounds request bodies well above any legitimate payload.
const maxRequestBody = 1 << 20

// DecodeJSON decodes the request body into v. Bodies over 1 MB are
// rejected.
func DecodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(v)
}
