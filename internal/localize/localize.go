package localize

import (
	"fmt"

	"golang.org/x/text/language"
)

// Bundle resolves user locales against the supported catalogs. Unknown or
// malformed locales fall back to the configured default.
type Bundle struct {
	matcher  language.Matcher
	tags     []language.Tag
	fallback language.Tag
}

var russian = language.MustParse("ru")

var catalogs = map[language.Tag]map[string]string{
	russian: {
		"schedule.header":     "📅 Расписание на %s (%s)",
		"schedule.header_day": "📅 Расписание на %s",
		"schedule.empty":      "Занятий нет, можно отдыхать 🎉",
		"lesson.teacher":      "👤 %s",
		"lesson.groups":       "👥 %s",
		"lesson.auditorium":   "📍 %s",
	},
	language.English: {
		"schedule.header":     "📅 Timetable for %s (%s)",
		"schedule.header_day": "📅 Timetable for %s",
		"schedule.empty":      "No classes scheduled, enjoy the day off 🎉",
		"lesson.teacher":      "👤 %s",
		"lesson.groups":       "👥 %s",
		"lesson.auditorium":   "📍 %s",
	},
}

// NewBundle builds a Bundle whose fallback is defaultLocale; an unsupported
// default falls back to Russian, the upstream content language.
func NewBundle(defaultLocale string) *Bundle {
	tags := []language.Tag{russian, language.English}
	b := &Bundle{
		matcher:  language.NewMatcher(tags),
		tags:     tags,
		fallback: russian,
	}
	if tag, ok := b.resolve(defaultLocale); ok {
		b.fallback = tag
	}
	return b
}

func (b *Bundle) resolve(locale string) (language.Tag, bool) {
	if locale == "" {
		return language.Und, false
	}
	parsed, err := language.Parse(locale)
	if err != nil {
		return language.Und, false
	}
	_, index, conf := b.matcher.Match(parsed)
	if conf < language.High {
		return language.Und, false
	}
	return b.tags[index], true
}

// T formats the message identified by key in the closest supported locale.
// An unknown key returns the key itself so missing copy is visible, not silent.
func (b *Bundle) T(locale, key string, args ...any) string {
	tag := b.fallback
	if resolved, ok := b.resolve(locale); ok {
		tag = resolved
	}
	msg, ok := catalogs[tag][key]
	if !ok {
		msg, ok = catalogs[b.fallback][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Supported reports whether the locale resolves to one of the catalogs
// without falling back.
func (b *Bundle) Supported(locale string) bool {
	_, ok := b.resolve(locale)
	return ok
}
