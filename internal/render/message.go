package render

import (
	"html"
	"strings"
	"time"

	"schedbot/internal/domain"
	"schedbot/internal/localize"
)

var pairEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣"}

const lessonSeparator = "——————————————————————"

// MessageRenderer produces an HTML-formatted text artifact, one message per
// day. It is the default notification format.
type MessageRenderer struct {
	bundle *localize.Bundle
}

// NewMessageRenderer builds a text renderer over the given locale bundle.
func NewMessageRenderer(bundle *localize.Bundle) *MessageRenderer {
	return &MessageRenderer{bundle: bundle}
}

// Render formats the day as a Telegram-HTML message. An empty day renders a
// short rest notice rather than failing.
func (r *MessageRenderer) Render(day *domain.ScheduleDay, locale, query string, date time.Time) (*domain.Artifact, error) {
	header := r.header(day, locale, date)

	var sb strings.Builder
	sb.WriteString("<b>")
	sb.WriteString(html.EscapeString(header))
	sb.WriteString("</b>\n\n")

	if day.Empty() {
		sb.WriteString(r.bundle.T(locale, "schedule.empty"))
		return &domain.Artifact{Kind: domain.ArtifactText, Data: []byte(sb.String())}, nil
	}

	lastSlot := ""
	slotNumber := 0
	for i, lesson := range day.Lessons {
		if lesson.Time != lastSlot {
			slotNumber++
			lastSlot = lesson.Time
		}
		sb.WriteString(slotEmoji(slotNumber))
		sb.WriteString(" <b>")
		sb.WriteString(html.EscapeString(lesson.Time))
		sb.WriteString("</b>\n  📖 ")
		sb.WriteString(html.EscapeString(lesson.Subject))
		sb.WriteString("\n  ")
		sb.WriteString(r.bundle.T(locale, "lesson.auditorium", html.EscapeString(lesson.Auditorium)))
		sb.WriteString("\n")
		if lesson.Teacher != "" {
			sb.WriteString("  ")
			sb.WriteString(r.bundle.T(locale, "lesson.teacher", html.EscapeString(lesson.Teacher)))
			sb.WriteString("\n")
		}
		if len(lesson.Groups) > 0 {
			sb.WriteString("  ")
			sb.WriteString(r.bundle.T(locale, "lesson.groups", html.EscapeString(strings.Join(lesson.Groups, ", "))))
			sb.WriteString("\n")
		}
		if i < len(day.Lessons)-1 {
			sb.WriteString("\n")
			sb.WriteString(lessonSeparator)
			sb.WriteString("\n")
		}
	}

	return &domain.Artifact{Kind: domain.ArtifactText, Data: []byte(sb.String())}, nil
}

func (r *MessageRenderer) header(day *domain.ScheduleDay, locale string, date time.Time) string {
	dateStr := date.Format("02.01.2006")
	if day.Weekday != "" {
		return r.bundle.T(locale, "schedule.header", dateStr, day.Weekday)
	}
	return r.bundle.T(locale, "schedule.header_day", dateStr)
}

func slotEmoji(number int) string {
	if number >= 1 && number <= len(pairEmojis) {
		return pairEmojis[number-1]
	}
	return "▫️"
}
