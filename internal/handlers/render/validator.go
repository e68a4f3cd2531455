package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/smolentsev/hookbin/internal/service/endpoint"
	appvalidate "github.com/smolentsev/hookbin/internal/service/validate"
)

var validate = validator.New()

func init() {
	configureValidator(validate)
}

func configureValidator(v *validator.Validate) {
	_ = v.RegisterValidation("email_addr", validateEmailAddr)
	_ = v.RegisterValidation("endpoint_slug", validateEndpointSlug)
	v.RegisterTagNameFunc(useJSONTagNames)
}

// useJSONTagNames reports field errors by json tag instead of struct name
func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// validateEmailAddr applies the same email rule the services enforce, so a
// request rejected here would have been rejected there anyway.
func validateEmailAddr(fl validator.FieldLevel) bool {
	return appvalidate.Email(appvalidate.NormalizeEmail(fl.Field().String())) == nil
}

func validateEndpointSlug(fl validator.FieldLevel) bool {
	return endpoint.ValidSlug(fl.Field().String())
}
