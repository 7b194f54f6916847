package schema

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// SanitizeText strips markup from display strings (labels, placeholders,
// descriptions). Plain text is returned untouched so entities like "&" do not
// get escaped on every save.
func SanitizeText(raw string) string {
	if !strings.ContainsAny(raw, "<>") {
		return raw
	}
	cleaned := textSanitizer().Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
