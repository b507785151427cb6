// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"scope/internal/acquisition"
	"scope/internal/analysis"
	"scope/internal/log"
	"scope/internal/scope"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError is a problem with a single configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors holds every problem found by Validate.
type ValidationErrors struct {
	Errors []ValidationError
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

func (v *ValidationErrors) add(field, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks struct constraints and then the values that must parse
// into scope types. All problems are reported together.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, e := range fieldErrs {
			errs.Errors = append(errs.Errors, ValidationError{
				Field:   fieldPath(e),
				Message: formatValidationMessage(e),
			})
		}
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs.add("log_level", "unknown level '%s'", c.LogLevel)
	}
	if _, err := acquisition.ParseWaveform(c.Acquisition.Waveform); err != nil {
		errs.add("acquisition.waveform", "%v", err)
	}
	if _, err := acquisition.ParseVoltageRange(c.Acquisition.Range); err != nil {
		errs.add("acquisition.range", "%v", err)
	}
	if _, err := acquisition.ParseCoupling(c.Acquisition.Coupling); err != nil {
		errs.add("acquisition.coupling", "%v", err)
	}
	if _, err := analysis.ParseWindow(c.Analysis.Window); err != nil {
		errs.add("analysis.window", "%v", err)
	}
	if _, err := scope.ParseTimeBase(c.Display.TimeBase); err != nil {
		errs.add("display.time_base", "%v", err)
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		errs.add("transport.websocket_address", "must be set when the WebSocket transport is enabled")
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			errs.add("transport.udp_target_address", "must be set when UDP is enabled")
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs.add("transport.udp_send_interval", "must be positive when UDP is enabled")
		}
	}

	if len(errs.Errors) > 0 {
		return errs
	}
	return nil
}

// fieldPath drops the root struct name from the namespace,
// "Config.analysis.segment_length" becomes "analysis.segment_length".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_if":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gtfield":
		return fmt.Sprintf("must be greater than %s", strings.ToLower(e.Param()))
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "hostname_port":
		return "must be a host:port address"
	default:
		return fmt.Sprintf("failed %s validation", e.Tag())
	}
}
