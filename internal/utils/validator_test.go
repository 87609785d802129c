package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocumentName(t *testing.T) {
	assert.NoError(t, ValidateDocumentName("Order.pdf"))
	assert.NoError(t, ValidateDocumentName("ఆర్డర్.pdf"))

	assert.Error(t, ValidateDocumentName(""))
	assert.Error(t, ValidateDocumentName("   "))
	assert.Error(t, ValidateDocumentName("../etc/passwd"))
	assert.Error(t, ValidateDocumentName("a\\b.pdf"))
	assert.Error(t, ValidateDocumentName("bad\x00name.pdf"))
	assert.Error(t, ValidateDocumentName(strings.Repeat("a", 256)))
}

func TestValidateLanguage(t *testing.T) {
	for _, code := range []string{"en", "tel", "hi", "nl", "pt-BR"} {
		assert.NoError(t, ValidateLanguage(code), code)
	}
	for _, code := range []string{"", "!!", "english language"} {
		assert.Error(t, ValidateLanguage(code), code)
	}
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Telugu", LanguageName("tel"))
	assert.Equal(t, "English", LanguageName("en"))
	assert.Equal(t, "Dutch", LanguageName("nl"))
	assert.Equal(t, "!!", LanguageName("!!"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("reviewer@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("Reviewer <reviewer@example.com>"))
}

func TestValidateMediaType(t *testing.T) {
	allowed := []string{"application/pdf"}
	assert.NoError(t, ValidateMediaType("application/pdf", allowed))
	assert.NoError(t, ValidateMediaType("Application/PDF", allowed))

	err := ValidateMediaType("image/png", allowed)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "image/png")
	}
}
