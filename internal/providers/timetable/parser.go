package timetable

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"schedbot/internal/domain"
)

var (
	// Dates inside the page headers look like "03.11.2025", possibly with a
	// weekday prefix.
	headerDatePattern = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	// Group names look like "ИС2-191-ОБ" or "ЛД1-201".
	groupNamePattern = regexp.MustCompile(`^[А-Я0-9]+-\d{1,3}(?:-[А-Я]+)?$`)
	// Subjects sometimes glue the subgroup digit to the preceding word.
	subgroupPattern = regexp.MustCompile(`([а-яА-Я])(\d)`)
)

var noLessonsMarkers = []string{"нет пар", "нет занятий", "занятий нет"}

// parseScheduleDay extracts the requested date's lessons from an upstream
// page. The page may carry several day blocks; the block whose header date
// matches wins. A page without a matching block is an empty day, because the
// upstream omits days that have no lessons.
func parseScheduleDay(r io.Reader, mode domain.Mode, date time.Time) (*domain.ScheduleDay, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	day := &domain.ScheduleDay{Date: date.Format("2006-01-02")}

	block := pickDayBlock(findDayBlocks(doc), date)
	if block == nil {
		return day, nil
	}

	day.Weekday = block.weekday
	day.Lessons = parseLessons(block.node, mode)
	return day, nil
}

type dayBlock struct {
	node    *html.Node
	date    time.Time
	weekday string
}

// findDayBlocks locates the per-day containers: divs whose header <strong>
// carries a DD.MM.YYYY date.
func findDayBlocks(doc *html.Node) []dayBlock {
	var blocks []dayBlock
	seen := make(map[*html.Node]bool)
	for _, strong := range findAll(doc, "strong") {
		headerDate, ok := parseHeaderDate(nodeText(strong))
		if !ok {
			continue
		}
		div := closestDayDiv(strong)
		if div == nil || seen[div] {
			continue
		}
		seen[div] = true
		blocks = append(blocks, dayBlock{
			node:    div,
			date:    headerDate,
			weekday: weekdayOf(div),
		})
	}
	return blocks
}

// pickDayBlock chooses the block matching the requested date, falling back to
// a day-and-month match and then to a lone block, since the upstream's year
// labeling is not always trustworthy.
func pickDayBlock(blocks []dayBlock, date time.Time) *dayBlock {
	var byDayMonth *dayBlock
	for i := range blocks {
		b := &blocks[i]
		if b.date.Year() == date.Year() && b.date.Month() == date.Month() && b.date.Day() == date.Day() {
			return b
		}
		if byDayMonth == nil && b.date.Month() == date.Month() && b.date.Day() == date.Day() {
			byDayMonth = b
		}
	}
	if byDayMonth != nil {
		return byDayMonth
	}
	if len(blocks) == 1 {
		return &blocks[0]
	}
	return nil
}

func parseHeaderDate(s string) (time.Time, bool) {
	m := headerDatePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// weekdayOf reads the weekday label, which sits in the day block's second
// nested div.
func weekdayOf(dayDiv *html.Node) string {
	var inner []*html.Node
	for _, div := range findAll(dayDiv, "div") {
		if div != dayDiv {
			inner = append(inner, div)
		}
	}
	if len(inner) > 1 {
		return strings.TrimSpace(nodeText(inner[1]))
	}
	return ""
}

// parseLessons walks the day's table rows. A row with a single cell continues
// the previous row's time slot; "no lessons" placeholder rows are dropped.
func parseLessons(dayDiv *html.Node, mode domain.Mode) []domain.Lesson {
	var lessons []domain.Lesson
	lastTime := ""

	for _, tr := range findAll(dayDiv, "tr") {
		tds := findAll(tr, "td")
		if len(tds) == 0 {
			continue
		}

		var contentTD, extraTD *html.Node
		if len(tds) == 1 {
			contentTD = tds[0]
		} else {
			if candidate := strings.TrimSpace(nodeText(tds[0])); candidate != "" {
				lastTime = candidate
			}
			contentTD = tds[1]
			if len(tds) > 2 {
				extraTD = tds[2]
			}
		}
		slot := lastTime
		if slot == "" {
			slot = "-"
		}

		if isNoLessonsRow(tds) {
			continue
		}

		lines := cellLines(contentTD)
		if len(lines) == 0 {
			continue
		}
		subject := subgroupPattern.ReplaceAllString(lines[0], "$1 $2")

		lesson := domain.Lesson{
			Time:       slot,
			Subject:    subject,
			Auditorium: auditoriumOf(tr, extraTD),
			Groups:     groupNames(lines),
		}
		if mode == domain.ModeGroup && len(lines) > 1 {
			last := lines[len(lines)-1]
			if last != lines[0] && !groupNamePattern.MatchString(last) {
				lesson.Teacher = last
			}
		}
		lessons = append(lessons, lesson)
	}
	return lessons
}

func isNoLessonsRow(tds []*html.Node) bool {
	var sb strings.Builder
	for _, td := range tds {
		sb.WriteString(strings.TrimSpace(nodeText(td)))
	}
	row := strings.ToLower(strings.TrimSpace(sb.String()))
	for _, marker := range noLessonsMarkers {
		if row == marker {
			return true
		}
	}
	return false
}

// auditoriumOf prefers the campus-map link when present and falls back to the
// third table cell.
func auditoriumOf(tr *html.Node, extraTD *html.Node) string {
	for _, a := range findAll(tr, "a") {
		if strings.Contains(attr(a, "href"), "map/rasp?auditory=") {
			if text := strings.TrimSpace(nodeText(a)); text != "" {
				return text
			}
		}
	}
	if extraTD != nil {
		if text := strings.TrimSpace(nodeText(extraTD)); text != "" {
			return text
		}
	}
	return "-"
}

func groupNames(lines []string) []string {
	var groups []string
	for _, line := range lines {
		if groupNamePattern.MatchString(line) {
			groups = append(groups, line)
		}
	}
	return groups
}

// cellLines returns the cell's text split on <br> boundaries, trimmed, with
// empty lines dropped.
func cellLines(td *html.Node) []string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			sb.WriteString("\n")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(td)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return out
}

// closestDayDiv walks up from the date header to the div that holds the
// day's rows. The header usually sits in its own wrapper div, so the nearest
// div ancestor is not enough.
func closestDayDiv(n *html.Node) *html.Node {
	var fallback *html.Node
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode || p.Data != "div" {
			continue
		}
		if fallback == nil {
			fallback = p
		}
		if len(findAll(p, "tr")) > 0 {
			return p
		}
	}
	return fallback
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
