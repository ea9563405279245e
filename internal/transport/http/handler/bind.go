package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-account-chat/internal/domain"
)

const maxBodyBytes = 1 << 20

// bind decodes a JSON or form-encoded request body into dst. Form fields are
// matched against dst's json tags.
func bind(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return invalidBody(err)
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return invalidBody(err)
	}
	fields := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return invalidBody(err)
	}
	return nil
}

func invalidBody(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.NewValidationError("Bad Request - body too large")
	}
	return fmt.Errorf("%w: %v", domain.NewValidationError("Bad Request - invalid request body"), err)
}
