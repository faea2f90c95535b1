package runtime

import (
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Package-level validator instance, shared by plugin configs and typed task inputs
var validate *validator.Validate

func init() {
	validate = validator.New()

	registerCustomValidators()
}

// InitializeConfig prepares a plugin Config struct:
// defaults from struct tags → raw value merging → validation.
func InitializeConfig(config any, rawValues map[string]any) error {
	if err := ApplyDefaults(config); err != nil {
		slog.Error("Plugin config: failed to apply defaults",
			"config_type", fmt.Sprintf("%T", config),
			"error", err)
		return fmt.Errorf("failed to apply defaults: %w", err)
	}

	// Config structs use yaml tags for field mapping
	if len(rawValues) > 0 {
		if err := mapToStructFromYAML(rawValues, config); err != nil {
			slog.Error("Plugin config: failed to apply config values",
				"config_type", fmt.Sprintf("%T", config),
				"error", err)
			return fmt.Errorf("failed to apply config values: %w", err)
		}
	}

	configValue := reflect.ValueOf(config)
	if configValue.Kind() == reflect.Ptr {
		configValue = configValue.Elem()
	}

	// Values are not logged: configs carry API keys.
	if err := ValidateStruct(configValue.Interface()); err != nil {
		slog.Error("Plugin config validation failed",
			"config_type", fmt.Sprintf("%T", config),
			"error", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

func registerCustomValidators() {
	// url_format validates URL structure
	validate.RegisterValidation("url_format", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		u, err := url.Parse(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	})
}

func ApplyDefaults(config any) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := defaults.Set(config); err != nil {
		return fmt.Errorf("failed to apply default values: %w", err)
	}

	return nil
}

// ValidateStruct validates a struct against its validate tags and flattens
// validator errors into a readable message.
func ValidateStruct(s any) error {
	if s == nil {
		return fmt.Errorf("value cannot be nil")
	}

	if err := validate.Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, fieldErr := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"field '%s' failed validation: %s (rule: %s)",
					fieldErr.Namespace(),
					fieldErr.Error(),
					fieldErr.Tag(),
				))
			}
			return fmt.Errorf("validation failed:\n  - %s", strings.Join(errMessages, "\n  - "))
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

func RegisterCustomValidator(tag string, fn validator.Func) error {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("failed to register custom validator '%s': %w", tag, err)
	}
	return nil
}
