package validators

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

type ValidationResponse struct {
	Errors []ValidationError `json:"errors"`
}

func Validate(data interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(data)
	if err != nil {
		if errors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errors {
				validationErrors = append(validationErrors, ValidationError{
					Field: e.Field(),
					Tag:   e.Tag(),
					Value: e.Param(),
				})
			}
		}
	}

	return validationErrors
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *RegisterRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) normalize() { r.Email = normalizeEmail(r.Email) }

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

func (r *VerifyRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) normalize() { r.Email = normalizeEmail(r.Email) }

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *ResetPasswordRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

func ValidateRegisterRequest(c *gin.Context) (*RegisterRequest, bool) {
	return bindAndValidate[RegisterRequest](c, false)
}

func ValidateLoginRequest(c *gin.Context) (*LoginRequest, bool) {
	return bindAndValidate[LoginRequest](c, false)
}

func ValidateVerifyRequest(c *gin.Context) (*VerifyRequest, bool) {
	return bindAndValidate[VerifyRequest](c, false)
}

func ValidateForgotPasswordRequest(c *gin.Context) (*ForgotPasswordRequest, bool) {
	return bindAndValidate[ForgotPasswordRequest](c, false)
}

func ValidateResetPasswordRequest(c *gin.Context) (*ResetPasswordRequest, bool) {
	return bindAndValidate[ResetPasswordRequest](c, false)
}

type normalizer interface {
	normalize()
}

// bindAndValidate writes the 400 response itself and reports false on any
// problem. allowEmpty accepts a request without a body.
func bindAndValidate[T any](c *gin.Context, allowEmpty bool) (*T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request payload",
		})
		return nil, false
	}

	if n, ok := any(&req).(normalizer); ok {
		n.normalize()
	}

	if errs := Validate(req); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, ValidationResponse{
			Errors: errs,
		})
		return nil, false
	}

	return &req, true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
