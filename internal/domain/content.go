package domain

// Lesson is one timetable entry within a day.
type Lesson struct {
	Time       string
	Subject    string
	Auditorium string
	Teacher    string
	Groups     []string
}

// ScheduleDay is the Content Provider's structured result for one date.
// A day with no lessons is valid content, not an error.
type ScheduleDay struct {
	Date    string
	Weekday string
	Lessons []Lesson
}

// Empty reports whether the day has no lessons.
func (d *ScheduleDay) Empty() bool {
	return d == nil || len(d.Lessons) == 0
}

// ArtifactKind selects how an artifact is delivered.
type ArtifactKind string

const (
	ArtifactPhoto ArtifactKind = "photo"
	ArtifactText  ArtifactKind = "text"
)

// Artifact is the rendered, deliverable output for one attempt. It is never
// persisted; retries recompute it to avoid delivering stale content.
type Artifact struct {
	Kind    ArtifactKind
	Data    []byte
	Caption string
}
