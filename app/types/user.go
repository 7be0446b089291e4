package types

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/loop-hq/loop-api/app/apperror"
)

var (
	usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	mobileRegexp   = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report fields by their json name so violation maps match the wire format
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegexp.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobileRegexp.MatchString(fl.Field().String())
	})

	return v
}

// fieldMessages converts validator tags to the messages clients see.
var fieldMessages = map[string]string{
	"email":    "Email format is invalid",
	"username": "Username can only contain letters, numbers and underscores",
	"mobile":   "Mobile number is not valid",
	"url":      "Profile URL must be a valid URL",
}

// UpdateUserProfileRequest carries partial update semantics: nil pointers
// leave the corresponding field untouched.
type UpdateUserProfileRequest struct {
	Email      *string `json:"email" validate:"omitempty,email"`
	Username   *string `json:"username" validate:"omitempty,username"`
	Mobile     *string `json:"mobile" validate:"omitempty,mobile"`
	ProfileURL *string `json:"profileUrl" validate:"omitempty,url"`
}

func NewUpdateUserProfileRequestFromContext(ctx echo.Context) (*UpdateUserProfileRequest, error) {
	var body UpdateUserProfileRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

// Validate checks every present field and aggregates all violations into a
// single error rather than stopping at the first invalid field.
func (r *UpdateUserProfileRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Wrap(err, "An unexpected error occurred")
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		message, known := fieldMessages[fieldErr.Tag()]
		if !known {
			message = "Invalid value"
		}
		fields[fieldErr.Field()] = message
	}

	return apperror.ValidationFields("Validation failed", fields)
}

type UserResponse struct {
	ID         uint64  `json:"id"`
	Email      string  `json:"email"`
	Mobile     *string `json:"mobile"`
	Username   string  `json:"username"`
	Admin      bool    `json:"admin"`
	ProfileURL *string `json:"profileUrl"`
}
