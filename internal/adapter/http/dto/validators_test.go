package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestIsSafeURL(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"https://partner.example.com/hooks", true},
		{"http://localhost:9000/cb?x=1", true},
		{"ftp://partner.example.com/hooks", false},
		{"javascript:alert(1)", false},
		{"/relative/path", false},
		{"https://", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSafeURL(tt.raw), "raw=%q", tt.raw)
	}
}

func TestUpdateWebhookRequest_Binding(t *testing.T) {
	good := "https://partner.example.com/hooks"
	bad := "ftp://partner.example.com/hooks"

	assert.NoError(t, binding.Validator.ValidateStruct(&UpdateWebhookRequest{WebhookURL: &good}))
	assert.NoError(t, binding.Validator.ValidateStruct(&UpdateWebhookRequest{}))
	assert.Error(t, binding.Validator.ValidateStruct(&UpdateWebhookRequest{WebhookURL: &bad}))
}
