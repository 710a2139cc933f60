package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"schedbot/internal/domain"
	"schedbot/internal/localize"
)

const (
	cardWidth   = 1080
	cardMargin  = 56
	cardLineGap = 8
	cardDPI     = 72
)

var (
	cardBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	cardInk        = color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}
	cardMuted      = color.RGBA{R: 0x6b, G: 0x6b, B: 0x6b, A: 0xff}
)

// CardRenderer rasterizes the day into a PNG card. The Go fonts ship with
// Cyrillic coverage, so no font files are needed at runtime.
type CardRenderer struct {
	bundle    *localize.Bundle
	titleFace font.Face
	timeFace  font.Face
	bodyFace  font.Face
	infoFace  font.Face
}

// NewCardRenderer parses the embedded fonts once and reuses the faces across
// renders.
func NewCardRenderer(bundle *localize.Bundle) (*CardRenderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parse bold font: %w", err)
	}

	r := &CardRenderer{bundle: bundle}
	for _, face := range []struct {
		dst  *font.Face
		src  *opentype.Font
		size float64
	}{
		{&r.titleFace, bold, 40},
		{&r.timeFace, bold, 30},
		{&r.bodyFace, regular, 30},
		{&r.infoFace, regular, 24},
	} {
		f, err := opentype.NewFace(face.src, &opentype.FaceOptions{
			Size:    face.size,
			DPI:     cardDPI,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("render: build face: %w", err)
		}
		*face.dst = f
	}
	return r, nil
}

type cardLine struct {
	text string
	face font.Face
	ink  color.RGBA
	gap  int
}

// Render draws the day onto a white card and returns it as a photo artifact
// with a localized caption.
func (r *CardRenderer) Render(day *domain.ScheduleDay, locale, query string, date time.Time) (*domain.Artifact, error) {
	lines := r.layout(day, locale, query, date)

	height := 2 * cardMargin
	for _, line := range lines {
		height += line.face.Metrics().Height.Ceil() + cardLineGap + line.gap
	}

	img := image.NewRGBA(image.Rect(0, 0, cardWidth, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(cardBackground), image.Point{}, draw.Src)

	y := cardMargin
	for _, line := range lines {
		metrics := line.face.Metrics()
		y += metrics.Ascent.Ceil()
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(line.ink),
			Face: line.face,
			Dot:  fixed.P(cardMargin, y),
		}
		drawer.DrawString(line.text)
		y += metrics.Descent.Ceil() + cardLineGap + line.gap
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode card: %w", err)
	}
	return &domain.Artifact{
		Kind:    domain.ArtifactPhoto,
		Data:    buf.Bytes(),
		Caption: r.caption(day, locale, date),
	}, nil
}

func (r *CardRenderer) layout(day *domain.ScheduleDay, locale, query string, date time.Time) []cardLine {
	maxWidth := cardWidth - 2*cardMargin
	var lines []cardLine
	add := func(text string, face font.Face, ink color.RGBA, gap int) {
		wrapped := wrapText(stripEmoji(text), face, maxWidth)
		for i, part := range wrapped {
			partGap := 0
			if i == len(wrapped)-1 {
				partGap = gap
			}
			lines = append(lines, cardLine{text: part, face: face, ink: ink, gap: partGap})
		}
	}

	add(r.caption(day, locale, date), r.titleFace, cardInk, 8)
	add(query, r.infoFace, cardMuted, 24)

	if day.Empty() {
		add(r.bundle.T(locale, "schedule.empty"), r.bodyFace, cardInk, 0)
		return lines
	}

	lastSlot := ""
	slotNumber := 0
	for i, lesson := range day.Lessons {
		if lesson.Time != lastSlot {
			slotNumber++
			lastSlot = lesson.Time
		}
		add(fmt.Sprintf("%d. %s", slotNumber, lesson.Time), r.timeFace, cardInk, 0)
		add(lesson.Subject, r.bodyFace, cardInk, 0)

		var info []string
		if lesson.Auditorium != "" && lesson.Auditorium != "-" {
			info = append(info, lesson.Auditorium)
		}
		if lesson.Teacher != "" {
			info = append(info, lesson.Teacher)
		}
		if len(lesson.Groups) > 0 {
			info = append(info, strings.Join(lesson.Groups, ", "))
		}
		gap := 0
		if i < len(day.Lessons)-1 {
			gap = 20
		}
		if len(info) > 0 {
			add(strings.Join(info, " · "), r.infoFace, cardMuted, gap)
		} else if gap > 0 {
			lines[len(lines)-1].gap = gap
		}
	}
	return lines
}

func (r *CardRenderer) caption(day *domain.ScheduleDay, locale string, date time.Time) string {
	dateStr := date.Format("02.01.2006")
	if day.Weekday != "" {
		return r.bundle.T(locale, "schedule.header", dateStr, day.Weekday)
	}
	return r.bundle.T(locale, "schedule.header_day", dateStr)
}

// stripEmoji drops the runes the Go fonts cannot draw; captions keep them but
// the rasterized card must not show replacement boxes.
func stripEmoji(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r > 0xFFFF || r == 0xFE0F {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}

// wrapText splits text into lines that fit maxWidth, breaking on spaces. A
// single word wider than the card is kept whole rather than clipped mid-rune.
func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	drawer := &font.Drawer{Face: face}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if drawer.MeasureString(candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}
