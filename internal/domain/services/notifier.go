package services

import (
	"context"
)

type TranslationSummary struct {
	SourceText     string
	TranslatedText string
}

// Notification is one approval request sent to one reviewer.
type Notification struct {
	Reviewer       Reviewer
	Link           string
	DocumentID     string
	DocumentName   string
	SourceLanguage string
	TargetLanguage string
	Subject        string
	Message        string
	Translation    TranslationSummary
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type SendResult struct {
	Reviewer string `json:"reviewer"`
	Slot     string `json:"slot"`
	Sent     bool   `json:"sent"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}
