package config

import (
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Errorf("default config should validate cleanly, got: %v", ValidationErrors(errs))
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.AdversarialProbability = -0.1
	cfg.MaxCycles = -1
	cfg.CodeOutput = "fax"

	errs := cfg.Validate()
	if len(errs) < 3 {
		t.Fatalf("expected at least 3 errors, got %d: %v", len(errs), ValidationErrors(errs))
	}

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"adversarial_probability", "max_cycles", "code_output"} {
		if !fields[want] {
			t.Errorf("missing validation error for %s", want)
		}
	}
}

func TestValidateWeightBounds(t *testing.T) {
	cfg := Default()
	cfg.Weights.Min = 2.0
	cfg.Weights.Max = 1.0

	errs := cfg.Validate()
	found := false
	for _, e := range errs {
		if e.Field == "weights.max" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected weights.max error, got %v", ValidationErrors(errs))
	}
}

func TestValidationErrorsMessageFormat(t *testing.T) {
	errs := ValidationErrors{
		{Field: "max_cycles", Value: 0, Message: "must be positive"},
		{Field: "level", Value: "nope", Message: "unknown level"},
	}
	msg := errs.Error()
	if !strings.Contains(msg, "2 validation errors") {
		t.Errorf("message should count errors: %q", msg)
	}

	one := ValidationErrors{errs[0]}
	if one.Error() != errs[0].Error() {
		t.Errorf("single error should not be wrapped: %q", one.Error())
	}
}
