package services

import (
	"net/url"
	"strings"
)

// uriComponentReplacer undoes the escapes url.QueryEscape applies to
// characters a browser's encodeURIComponent leaves alone.
var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}

// ApprovalLink builds <baseURL>/approve/<documentID>?reviewer=<identity>.
func ApprovalLink(baseURL, documentID, identity string) string {
	return strings.TrimRight(baseURL, "/") +
		"/approve/" + documentID +
		"?reviewer=" + encodeURIComponent(identity)
}
