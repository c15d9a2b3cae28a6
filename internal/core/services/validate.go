package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// entryValidate is shared by every validation call. validator.Validate
// caches struct metadata and is safe for concurrent use.
var entryValidate *validator.Validate

func init() {
	entryValidate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so problems match the authored shape.
	entryValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = entryValidate.RegisterValidation("overlay_domain", func(fl validator.FieldLevel) bool {
		return domain.Domain(fl.Field().String()).IsValid()
	})
	_ = entryValidate.RegisterValidation("overlay_status", func(fl validator.FieldLevel) bool {
		return domain.EntryStatus(fl.Field().String()).IsValid()
	})
	_ = entryValidate.RegisterValidation("scope_level", func(fl validator.FieldLevel) bool {
		return domain.ScopeLevel(fl.Field().String()).IsValid()
	})
	_ = entryValidate.RegisterValidation("guardrail_level", func(fl validator.FieldLevel) bool {
		return domain.GuardrailLevel(fl.Field().String()).IsValid()
	})
}

// applyInputDefaults fills optional fields that have a documented default.
func applyInputDefaults(in *domain.EntryInput) {
	if in.Status == "" {
		in.Status = domain.StatusDraft
	}
	if in.Guardrails.Level == "" {
		in.Guardrails.Level = domain.GuardrailMedium
	}
	if in.Scope.Level == "" {
		if in.Scope.SubKey == domain.SharedSubKey {
			in.Scope.Level = domain.ScopeGroup
		} else {
			in.Scope.Level = domain.ScopeIndividual
		}
	}
}

// ValidateInput checks an authored entry after defaults are applied.
func ValidateInput(in domain.EntryInput) error {
	if err := ValidateContent(in.Content); err != nil {
		return err
	}
	return toValidationError(entryValidate.Struct(in))
}

// ValidateContent rejects empty and whitespace-only content.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return domain.NewValidationError("content", "required")
	}
	return nil
}

// ValidatePatch checks a metadata patch.
func ValidatePatch(p domain.MetadataPatch) error {
	if p.IsEmpty() {
		return domain.NewValidationError("patch", "empty")
	}
	return toValidationError(entryValidate.Struct(p))
}

// toValidationError converts validator output into the domain error type.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &domain.ValidationError{Problems: []domain.FieldProblem{{Field: "input", Rule: err.Error()}}}
	}
	problems := make([]domain.FieldProblem, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, domain.FieldProblem{Field: fieldPath(fe.Namespace()), Rule: fe.Tag()})
	}
	return &domain.ValidationError{Problems: problems}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
