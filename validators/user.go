package validators

import (
	"strings"

	"github.com/gin-gonic/gin"
)

type UpdateNameRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

func (r *UpdateNameRequest) normalize() { r.Name = strings.TrimSpace(r.Name) }

type UpdatePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UpdateThemeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=dark light"`
}

type ChangeEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ChangeEmailRequest) normalize() { r.Email = normalizeEmail(r.Email) }

// ExportRequest.Email defaults to the account address when empty.
type ExportRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

func (r *ExportRequest) normalize() { r.Email = normalizeEmail(r.Email) }

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
	Convo   string `json:"convo" validate:"max=100"`
}

func (r *ChatRequest) normalize() { r.Convo = strings.TrimSpace(r.Convo) }

func ValidateUpdateNameRequest(c *gin.Context) (*UpdateNameRequest, bool) {
	return bindAndValidate[UpdateNameRequest](c, false)
}

func ValidateUpdatePasswordRequest(c *gin.Context) (*UpdatePasswordRequest, bool) {
	return bindAndValidate[UpdatePasswordRequest](c, false)
}

func ValidateUpdateThemeRequest(c *gin.Context) (*UpdateThemeRequest, bool) {
	return bindAndValidate[UpdateThemeRequest](c, false)
}

func ValidateChangeEmailRequest(c *gin.Context) (*ChangeEmailRequest, bool) {
	return bindAndValidate[ChangeEmailRequest](c, false)
}

func ValidateExportRequest(c *gin.Context) (*ExportRequest, bool) {
	return bindAndValidate[ExportRequest](c, true)
}

func ValidateChatRequest(c *gin.Context) (*ChatRequest, bool) {
	return bindAndValidate[ChatRequest](c, false)
}
