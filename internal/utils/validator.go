package utils

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const maxNameLength = 255

// Codes offered by the upload form. They take precedence over BCP 47 parsing
// so that three-letter codes such as "tel" keep their form.
var knownLanguages = map[string]string{
	"tel": "Telugu",
	"en":  "English",
	"es":  "Spanish",
	"fr":  "French",
	"de":  "German",
	"it":  "Italian",
	"pt":  "Portuguese",
	"ru":  "Russian",
	"ja":  "Japanese",
	"ko":  "Korean",
	"zh":  "Chinese",
	"ar":  "Arabic",
	"hi":  "Hindi",
}

func ValidateDocumentName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("file name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("file name must be at most %d characters long", maxNameLength)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("file name must not contain path separators")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("file name must not contain control characters")
		}
	}
	return nil
}

func ValidateLanguage(code string) error {
	if code == "" {
		return fmt.Errorf("language code is required")
	}
	if _, ok := knownLanguages[code]; ok {
		return nil
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("unsupported language code %q", code)
	}
	return nil
}

// LanguageName returns the English display name of code, or code itself when
// it cannot be resolved.
func LanguageName(code string) string {
	if name, ok := knownLanguages[code]; ok {
		return name
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address %q", email)
	}
	return nil
}

func ValidateMediaType(mediaType string, allowed []string) error {
	for _, a := range allowed {
		if strings.EqualFold(a, mediaType) {
			return nil
		}
	}
	return fmt.Errorf("only %s files are allowed, received %q", strings.Join(allowed, ", "), mediaType)
}
