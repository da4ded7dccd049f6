package dto

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_url", validateSafeURL)
	}
}

// validateSafeURL accepts blank values and absolute http/https URLs with a host.
func validateSafeURL(fl validator.FieldLevel) bool {
	return IsSafeURL(fl.Field().String())
}

// IsSafeURL reports whether raw is empty or an absolute http(s) URL.
func IsSafeURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true // optional field; blank clears the subscription
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
