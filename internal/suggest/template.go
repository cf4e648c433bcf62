// Package suggest produces short shareable messages inviting a client to book studio time.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"sessionsnap/internal/models"
)

var ErrMissingStudio = errors.New("studio name is required")

type phrases struct {
	greeting      string
	greetingNamed string
	body          string
	hint          string
	returning     string
	link          string
}

var languages = map[string]phrases{
	"en": {
		greeting:      "Hi!",
		greetingNamed: "Hi %s!",
		body:          "%s has open slots this week",
		hint:          " for your next %s session",
		returning:     ", great to have you back",
		link:          "Pick a time:",
	},
	"pt": {
		greeting:      "Oi!",
		greetingNamed: "Oi %s!",
		body:          "O %s tem horarios livres esta semana",
		hint:          " para a sua proxima sessao de %s",
		returning:     ", bom ter voce de volta",
		link:          "Escolha um horario:",
	},
}

// TemplateSuggester fills a fixed template. It never fails for a valid studio name, which
// makes it the default suggester and the fallback for remote ones.
type TemplateSuggester struct {
	// DefaultLanguage is used when the context carries none or an unknown one.
	DefaultLanguage string
	MaxLength       int
}

func NewTemplateSuggester() *TemplateSuggester {
	return &TemplateSuggester{DefaultLanguage: "en", MaxLength: models.ShareMessageMaxLength}
}

func (s *TemplateSuggester) Suggest(_ context.Context, sc models.SuggestionContext) (string, error) {
	studio := strings.TrimSpace(sc.StudioName)
	if studio == "" {
		return "", ErrMissingStudio
	}

	p, ok := languages[sc.Language]
	if !ok {
		p = languages[s.DefaultLanguage]
		if p.body == "" {
			p = languages["en"]
		}
	}

	var body strings.Builder
	if name := strings.TrimSpace(sc.ClientName); name != "" {
		fmt.Fprintf(&body, p.greetingNamed, firstName(name))
	} else {
		body.WriteString(p.greeting)
	}
	body.WriteString(" ")
	fmt.Fprintf(&body, p.body, studio)
	if hint := strings.TrimSpace(sc.PastSummary); hint != "" {
		fmt.Fprintf(&body, p.hint, firstItem(hint))
	}
	if sc.PastSessions > 0 {
		body.WriteString(p.returning)
	}
	body.WriteString(".")

	link := strings.TrimSpace(sc.CalendarLink)
	if link == "" {
		return models.TruncateMessage(body.String(), s.maxLength()), nil
	}

	tail := " " + p.link + " " + link
	budget := s.maxLength() - utf8.RuneCountInString(tail)
	if budget <= 0 {
		return models.TruncateMessage(link, s.maxLength()), nil
	}
	return models.TruncateMessage(body.String(), budget) + tail, nil
}

func (s *TemplateSuggester) maxLength() int {
	if s.MaxLength <= 0 {
		return models.ShareMessageMaxLength
	}
	return s.MaxLength
}

func firstName(name string) string {
	return strings.Fields(name)[0]
}

// firstItem picks the first project of a comma separated summary.
func firstItem(summary string) string {
	item, _, _ := strings.Cut(summary, ",")
	return strings.TrimSpace(item)
}
