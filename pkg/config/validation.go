package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var driveNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("drivename", func(fl validator.FieldLevel) bool {
		return driveNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks the configuration against its struct tags.
//
// Errors name the failing field and the rule, e.g.
// "Config.Logging.Level: failed 'oneof' validation".
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fmt.Sprintf("%s: failed '%s' validation", fe.Namespace(), fe.Tag())
	}
	return fmt.Sprintf("%s: failed '%s' validation (%s)", fe.Namespace(), fe.Tag(), fe.Param())
}
