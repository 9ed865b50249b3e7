package services

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
	"github.com/dmitrijs2005/garagebook/internal/timex"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// validate is shared; validator caches struct metadata and is safe for
// concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// Dates are validated as their text form so "required" means "set".
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(timex.Date)
		if !ok || d.IsZero() {
			return ""
		}
		return d.String()
	}, timex.Date{})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return v
}

// maxBytes limits the byte length of a string, unlike "max" which counts
// runes. bcrypt rejects passwords over 72 bytes.
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// FieldError names one rejected input field and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every rejected field. It matches common.ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Rule)
	}
	return fmt.Sprintf("%s: %s", common.ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

// NewValidationError reports a single bad field, used when the input could
// not even be decoded (e.g. a malformed date).
func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule}}}
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// SignupInput is the body of a signup request. Values are stored as sent;
// whitespace-only names are rejected rather than trimmed.
type SignupInput struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,maxbytes=72"`
	GarageName string `json:"garageName" validate:"required,notblank,max=100"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

// VehicleInput carries every client-settable field of a service record.
// The owning account never comes from here.
type VehicleInput struct {
	OwnerName       string     `json:"ownerName" validate:"required,notblank,max=100"`
	Phone           string     `json:"phone" validate:"required,notblank,max=100"`
	VehicleNumber   string     `json:"vehicleNumber" validate:"required,notblank,max=100"`
	Make            string     `json:"make" validate:"required,notblank,max=100"`
	Model           string     `json:"model" validate:"required,notblank,max=100"`
	LastServiceDate timex.Date `json:"lastServiceDate" validate:"required"`
	NextServiceDate timex.Date `json:"nextServiceDate" validate:"required"`
	Notes           string     `json:"notes" validate:"max=2000"`
}

// Validate checks in without modifying it, returning a *ValidationError.
func (in *VehicleInput) Validate() error {
	return validateStruct(in)
}

func (in *VehicleInput) toVehicle(accountID int64) *models.Vehicle {
	return &models.Vehicle{
		AccountID:       accountID,
		OwnerName:       in.OwnerName,
		Phone:           in.Phone,
		VehicleNumber:   in.VehicleNumber,
		Make:            in.Make,
		Model:           in.Model,
		LastServiceDate: in.LastServiceDate,
		NextServiceDate: in.NextServiceDate,
		Notes:           in.Notes,
	}
}
