package conf

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "tcpport", func(fl validator.FieldLevel) bool { return isTCPPort(fl.Field().String()) })
	mustRegister(v, "origin", func(fl validator.FieldLevel) bool { return isOrigin(fl.Field().String()) })
	mustRegister(v, "locale", func(fl validator.FieldLevel) bool { return isLocale(fl.Field().String()) })
	mustRegister(v, "tzname", func(fl validator.FieldLevel) bool { return isTimezone(fl.Field().String()) })
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("conf: register validation %q: %v", tag, err))
	}
}

// ValidateSettings validates the entire Settings struct. The MySQL section is
// only checked when MySQL is the selected backend.
func ValidateSettings(settings *Settings) error {
	if settings == nil {
		return ValidationError{Errors: []string{"settings cannot be nil"}}
	}

	ve := ValidationError{}

	err := validate.StructExcept(settings, exceptFor(settings)...)
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			ve.Errors = append(ve.Errors, messageFor(fe))
		}
	case err != nil:
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLogLevel(settings.Logging.DefaultLevel); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// exceptFor lists struct sections that don't apply to the chosen backend
func exceptFor(settings *Settings) []string {
	switch settings.Database.Type {
	case "sqlite":
		return []string{"Database.MySQL"}
	case "mysql":
		return []string{"Database.SQLite"}
	}
	return nil
}

func validateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	if err := validateEnvLogLevel(level); err != nil {
		return fmt.Errorf("logging.default_level %w", err)
	}
	return nil
}

// messageFor turns a validator field error into a config key oriented message
func messageFor(fe validator.FieldError) string {
	key := configKey(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", key, fe.Param(), fe.Value())
	case "gte", "gt", "lte":
		return fmt.Sprintf("%s must be %s %s", key, fe.Tag(), fe.Param())
	case "tcpport":
		return fmt.Sprintf("%s must be a port number between 1 and 65535, got %q", key, fe.Value())
	case "origin":
		return fmt.Sprintf("%s must be * or an absolute http(s) URL, got %q", key, fe.Value())
	case "url":
		return fmt.Sprintf("%s must be an absolute URL", key)
	case "locale":
		return fmt.Sprintf("%s must be a language tag, got %q", key, fe.Value())
	case "tzname":
		return fmt.Sprintf("%s is not a known timezone: %q", key, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

// configKey converts "Settings.WebServer.CORSOrigin" to "webserver.corsorigin"
func configKey(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		rest = namespace
	}
	return strings.ToLower(rest)
}

func isTCPPort(value string) bool {
	n, err := strconv.Atoi(value)
	return err == nil && n >= 1 && n <= 65535
}

func isOrigin(value string) bool {
	if value == "*" {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isLocale(value string) bool {
	_, err := language.Parse(value)
	return err == nil
}

func isTimezone(value string) bool {
	if value == "" || value == "Local" {
		return true
	}
	_, err := time.LoadLocation(value)
	return err == nil
}
