package scraper

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// TrackListing is one track discovered on the landing page.
type TrackListing struct {
	Name    string
	Courses []CourseListing
}

type CourseListing struct {
	Name string
	Link string
}

func parseHTML(s string) (*html.Node, error) {
	return html.Parse(strings.NewReader(s))
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if all := findAll(root, match); len(all) > 0 {
		return all[0]
	}
	return nil
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

func ancestor(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return p
		}
	}
	return nil
}

func nextSibling(n *html.Node, tag string) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == tag {
			return s
		}
	}
	return nil
}

// textContent concatenates the text nodes under n, skipping scripts and
// styles, and collapses whitespace.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteByte(' ')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func csrfToken(doc *html.Node) (string, bool) {
	meta := findFirst(doc, func(n *html.Node) bool {
		name, _ := attr(n, "name")
		return n.Data == "meta" && name == "csrf-token"
	})
	if meta == nil {
		return "", false
	}
	v, ok := attr(meta, "content")
	return v, ok && v != ""
}

// parseLanding extracts tracks and their courses from the contents page.
// Each h4 titled category-title-* names a track; its courses are the anchors
// into /c/cursos/ inside the div following the heading's second enclosing
// div, named by their image's alt text. Repeated names keep their first
// position and the last link seen. Tracks without courses are dropped.
func parseLanding(doc *html.Node) []TrackListing {
	headings := findAll(doc, func(n *html.Node) bool {
		id, _ := attr(n, "id")
		return n.Data == "h4" && strings.HasPrefix(id, "category-title-")
	})

	var tracks []TrackListing
	trackIdx := map[string]int{}
	for _, h4 := range headings {
		name := strings.TrimSpace(textContent(h4))
		outer := ancestor(h4, "div")
		if outer != nil {
			outer = ancestor(outer, "div")
		}
		if outer == nil {
			continue
		}
		container := nextSibling(outer, "div")
		if container == nil {
			continue
		}

		var courses []CourseListing
		courseIdx := map[string]int{}
		anchors := findAll(container, func(n *html.Node) bool {
			href, _ := attr(n, "href")
			return n.Data == "a" && strings.Contains(href, "/c/cursos/")
		})
		for _, a := range anchors {
			img := findFirst(a, isElement("img"))
			if img == nil {
				continue
			}
			alt, ok := attr(img, "alt")
			if !ok {
				continue
			}
			href, _ := attr(a, "href")
			course := CourseListing{Name: strings.TrimSpace(alt), Link: href}
			if i, seen := courseIdx[course.Name]; seen {
				courses[i].Link = course.Link
				continue
			}
			courseIdx[course.Name] = len(courses)
			courses = append(courses, course)
		}
		if len(courses) == 0 {
			continue
		}

		if i, seen := trackIdx[name]; seen {
			tracks[i].Courses = courses
			continue
		}
		trackIdx[name] = len(tracks)
		tracks = append(tracks, TrackListing{Name: name, Courses: courses})
	}
	return tracks
}

// componentStates parses every wire:initial-data div under doc, skipping
// payloads that do not validate.
func componentStates(doc *html.Node) []ComponentState {
	var out []ComponentState
	for _, div := range findAll(doc, func(n *html.Node) bool {
		_, ok := attr(n, "wire:initial-data")
		return n.Data == "div" && ok
	}) {
		raw, _ := attr(div, "wire:initial-data")
		st, err := ParseComponentState(raw)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out
}

// lessonStub is a lesson id read from an expanded module card.
type lessonStub struct {
	ID        int64
	Completed bool
}

// parseLessonList reads li[wire:key*="lesson."] entries. A lesson counts as
// completed when its x-data, stripped of whitespace, holds finished:true.
func parseLessonList(doc *html.Node) []lessonStub {
	var out []lessonStub
	for _, li := range findAll(doc, func(n *html.Node) bool {
		key, _ := attr(n, "wire:key")
		return n.Data == "li" && strings.Contains(key, "lesson.")
	}) {
		key, _ := attr(li, "wire:key")
		_, after, _ := strings.Cut(key, "lesson.")
		id, err := strconv.ParseInt(after, 10, 64)
		if err != nil {
			continue
		}
		xdata, _ := attr(li, "x-data")
		compact := strings.Join(strings.Fields(xdata), "")
		out = append(out, lessonStub{ID: id, Completed: strings.Contains(compact, "finished:true")})
	}
	return out
}
