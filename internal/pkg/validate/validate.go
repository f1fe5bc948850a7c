package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is shared by all request validation. Custom tag registrations must happen
// in an init() before the first Struct call.
var v = validator.New()

// Struct checks a request DTO against its validate tags and collapses the
// field errors into a single message fit for a 400 body. Callers wrap the
// returned error with the bad-request sentinel.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
