package validate

import (
	"fmt"

	"github.com/go-account-chat/internal/domain"
	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// Messages maps "<StructField>.<tag>" to the text reported for that failure.
type Messages map[string]string

// Struct validates s using its validate tags. Failures come back as a
// *domain.ValidationError holding one message per failed field, in field
// order, looked up in msgs with a generic fallback.
func Struct(s interface{}, msgs Messages) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		if m, ok := msgs[fe.StructField()+"."+fe.Tag()]; ok {
			out = append(out, m)
			continue
		}
		out = append(out, fmt.Sprintf("Bad Request - field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return domain.NewValidationError(out...)
}
