package mail

import (
	"bytes"
	"document-review/internal/domain/services"
	"document-review/internal/utils"
	"html/template"
	"strings"
	"unicode/utf8"
)

const previewLength = 200

var approvalTemplate = template.Must(template.New("approval").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Translation Approval Request</h2>
  <p>Hello {{.ReviewerName}},</p>
  {{- if .Message}}
  <p>{{.Message}}</p>
  {{- end}}
  <div style="margin: 20px 0; padding: 15px; border: 1px solid #ddd; border-radius: 4px;">
    <p><strong>Document:</strong> {{.DocumentName}}</p>
    <p><strong>Source Language:</strong> {{.SourceLanguage}}</p>
    <p><strong>Target Language:</strong> {{.TargetLanguage}}</p>
    {{- if or .SourcePreview .TranslatedPreview}}
    <hr style="border: 0; border-top: 1px solid #eee; margin: 15px 0;">
    <h3>Translation Preview:</h3>
    <div style="background: #f9f9f9; padding: 10px; border-radius: 4px; margin-bottom: 10px;">
      <p><strong>Original:</strong></p>
      <p>{{.SourcePreview}}</p>
    </div>
    <div style="background: #f9f9f9; padding: 10px; border-radius: 4px;">
      <p><strong>Translated:</strong></p>
      <p>{{.TranslatedPreview}}</p>
    </div>
    {{- end}}
  </div>
  <div style="margin: 25px 0; text-align: center;">
    <a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 4px;">Review and Approve</a>
  </div>
  <p>Thank you for your time.</p>
  <p>Best regards,<br>Translation System</p>
</div>
`))

type approvalData struct {
	ReviewerName      string
	Message           string
	DocumentName      string
	SourceLanguage    string
	TargetLanguage    string
	SourcePreview     string
	TranslatedPreview string
	Link              string
}

func renderHTML(n services.Notification) (string, error) {
	data := approvalData{
		ReviewerName:      n.Reviewer.Name,
		Message:           n.Message,
		DocumentName:      n.DocumentName,
		SourceLanguage:    utils.LanguageName(n.SourceLanguage),
		TargetLanguage:    utils.LanguageName(n.TargetLanguage),
		SourcePreview:     preview(n.Translation.SourceText),
		TranslatedPreview: preview(n.Translation.TranslatedText),
		Link:              n.Link,
	}

	var buf bytes.Buffer
	if err := approvalTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(n services.Notification) string {
	var b strings.Builder
	b.WriteString("Hello " + n.Reviewer.Name + ",\n\n")
	if n.Message != "" {
		b.WriteString(n.Message + "\n\n")
	}
	b.WriteString("Document: " + n.DocumentName + "\n")
	b.WriteString("Source Language: " + utils.LanguageName(n.SourceLanguage) + "\n")
	b.WriteString("Target Language: " + utils.LanguageName(n.TargetLanguage) + "\n\n")
	b.WriteString("Review and approve: " + n.Link + "\n")
	return b.String()
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	return string([]rune(s)[:previewLength]) + "..."
}
