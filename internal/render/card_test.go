package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"schedbot/internal/domain"
	"schedbot/internal/localize"
)

func TestCardRendererRender(t *testing.T) {
	r, err := NewCardRenderer(localize.NewBundle("ru"))
	if err != nil {
		t.Fatalf("NewCardRenderer: %v", err)
	}
	date := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	artifact, err := r.Render(testDay(), "ru", "ИС2-191-ОБ", date)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if artifact.Kind != domain.ArtifactPhoto {
		t.Fatalf("kind = %s, want photo", artifact.Kind)
	}
	if !strings.Contains(artifact.Caption, "11.03.2026") {
		t.Fatalf("caption = %q", artifact.Caption)
	}

	img, err := png.Decode(bytes.NewReader(artifact.Data))
	if err != nil {
		t.Fatalf("decode card: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != cardWidth {
		t.Fatalf("card width = %d, want %d", bounds.Dx(), cardWidth)
	}
	if bounds.Dy() < 200 {
		t.Fatalf("card height = %d, suspiciously small for 3 lessons", bounds.Dy())
	}
}

func TestCardRendererEmptyDay(t *testing.T) {
	r, err := NewCardRenderer(localize.NewBundle("ru"))
	if err != nil {
		t.Fatalf("NewCardRenderer: %v", err)
	}
	day := &domain.ScheduleDay{Date: "2026-03-11"}

	artifact, err := r.Render(day, "ru", "ИС2-191-ОБ", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(artifact.Data)); err != nil {
		t.Fatalf("decode empty-day card: %v", err)
	}
}

func TestStripEmoji(t *testing.T) {
	got := stripEmoji("📅 Расписание на 11.03.2026 🎉")
	if got != "Расписание на 11.03.2026" {
		t.Fatalf("stripEmoji = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	r, err := NewCardRenderer(localize.NewBundle("ru"))
	if err != nil {
		t.Fatalf("NewCardRenderer: %v", err)
	}
	long := strings.Repeat("слово ", 40)
	lines := wrapText(long, r.bodyFace, cardWidth-2*cardMargin)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %d line(s)", len(lines))
	}
	for _, line := range lines {
		if line == "" {
			t.Fatal("wrapText produced an empty line")
		}
	}
}
