package services

import (
	"context"
)

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type TranslationResult struct {
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// MockTranslator returns canned output. It stands in for a real machine
// translation backend.
type MockTranslator struct{}

var cannedTranslations = map[string]string{
	"es": "Este es un texto de ejemplo que se extraería de la imagen cargada. En una aplicación real, este texto se obtendría mediante un servicio de OCR (Reconocimiento Óptico de Caracteres) que puede reconocer y extraer texto de imágenes.",
	"fr": "Ceci est un exemple de texte qui serait extrait de l'image téléchargée. Dans une application réelle, ce texte serait obtenu à l'aide d'un service OCR (Reconnaissance Optique de Caractères) capable de reconnaître et d'extraire du texte à partir d'images.",
	"de": "Dies ist ein Beispieltext, der aus dem hochgeladenen Bild extrahiert würde. In einer echten Anwendung würde dieser Text mit einem OCR-Dienst (Optical Character Recognition) erstellt, der Text in Bildern erkennen und extrahieren kann.",
}

func (MockTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if out, ok := cannedTranslations[targetLang]; ok {
		return out, nil
	}
	return "Translated version of: " + text, nil
}
