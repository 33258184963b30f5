package models

import "strings"

// SentinelName labels the module and lesson of a course placeholder row.
const SentinelName = "N/A"

// LessonRecord is one row of the scraped catalog: a lesson together with its
// track/course/module lineage. Optional fields are nil on course placeholder
// rows, which stand in for courses that yielded no lessons.
type LessonRecord struct {
	TrackName  string  `json:"track_name"`
	CourseName string  `json:"course_name"`
	CourseLink string  `json:"course_link"`
	ModuleID   *int64  `json:"module_id"`
	ModuleName *string `json:"module_name"`
	LessonID   *int64  `json:"lesson_id"`
	LessonName *string `json:"lesson_name"`
	LessonSlug *string `json:"lesson_slug"`
	LessonLink *string `json:"lesson_link"`
	Completed  *bool   `json:"completed"`
	Summary    *string `json:"summary"`
	Content    *string `json:"content"`
}

// SentinelRecord builds the single placeholder row for a course that failed
// or produced no lessons.
func SentinelRecord(track, course, link string) LessonRecord {
	na := SentinelName
	lessonNA := SentinelName
	return LessonRecord{
		TrackName:  track,
		CourseName: course,
		CourseLink: link,
		ModuleName: &na,
		LessonName: &lessonNA,
	}
}

func (r LessonRecord) IsSentinel() bool {
	return r.LessonID == nil
}

// LessonLink derives the direct lesson URL from the course link and slug.
// An empty slug yields nil.
func LessonLink(courseLink, slug string) *string {
	if strings.TrimSpace(slug) == "" {
		return nil
	}
	base := courseLink
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	link := base + "?lessonSlug=" + slug
	return &link
}

func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
