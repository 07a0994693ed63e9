package render

import (
	"html/template"
	"strings"

	"resumeRender/internal/resume"
)

const defaultBullet = "•"

type contactView struct {
	Text string
	Href string
}

type entryView struct {
	Title       string
	Subtitle    string
	Location    string
	Dates       string
	Description string
	Bullets     []string
}

type sectionView struct {
	Title  string
	Bullet string
	Items  []string
}

type resumeView struct {
	FullName   string
	Position   string
	Summary    string
	Contacts   []contactView
	Skills     []string
	Experience []entryView
	Education  []entryView
	Sections   []sectionView
	Photo      template.URL
}

var templateFuncs = template.FuncMap{
	"paragraphs": paragraphs,
}

// paragraphs splits free text on blank lines.
func paragraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildView(r resume.Request) resumeView {
	return resumeView{
		FullName:   strings.TrimSpace(r.FullName),
		Position:   strings.TrimSpace(r.Position),
		Summary:    strings.TrimSpace(r.Summary),
		Contacts:   contactsView(r.Contacts),
		Skills:     nonBlank(r.Skills),
		Experience: experienceView(r.Experience),
		Education:  educationView(r.Education),
		Sections:   sectionsView(r.CustomSections),
	}
}

func contactsView(c resume.Contacts) []contactView {
	var out []contactView
	if email := strings.TrimSpace(c.Email); email != "" {
		out = append(out, contactView{Text: email, Href: "mailto:" + email})
	}
	if phone := strings.TrimSpace(c.Phone); phone != "" {
		out = append(out, contactView{Text: phone})
	}
	if loc := strings.TrimSpace(c.Location); loc != "" {
		out = append(out, contactView{Text: loc})
	}
	for _, l := range c.Links {
		url := strings.TrimSpace(l.URL)
		if url == "" {
			continue
		}
		label := strings.TrimSpace(l.Label)
		if label == "" {
			label = url
		}
		out = append(out, contactView{Text: label, Href: url})
	}
	return out
}

func dateRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start != "" && end != "":
		return start + " – " + end
	case start != "":
		return start
	default:
		return end
	}
}

func experienceView(entries []resume.ExperienceEntry) []entryView {
	var out []entryView
	for _, e := range entries {
		if strings.TrimSpace(e.Company) == "" && strings.TrimSpace(e.Position) == "" {
			continue
		}
		out = append(out, entryView{
			Title:       strings.TrimSpace(e.Position),
			Subtitle:    strings.TrimSpace(e.Company),
			Location:    strings.TrimSpace(e.Location),
			Dates:       dateRange(e.StartDate, e.EndDate),
			Description: strings.TrimSpace(e.Description),
			Bullets:     nonBlank(e.Bullets),
		})
	}
	return out
}

func educationView(entries []resume.EducationEntry) []entryView {
	var out []entryView
	for _, e := range entries {
		if strings.TrimSpace(e.Institution) == "" && strings.TrimSpace(e.Degree) == "" {
			continue
		}
		out = append(out, entryView{
			Title:       strings.TrimSpace(e.Institution),
			Subtitle:    strings.TrimSpace(e.Degree),
			Location:    strings.TrimSpace(e.Location),
			Dates:       dateRange(e.StartDate, e.EndDate),
			Description: strings.TrimSpace(e.Details),
		})
	}
	return out
}

func sectionsView(sections []resume.CustomSection) []sectionView {
	var out []sectionView
	for _, cs := range sections {
		title := strings.TrimSpace(cs.Title)
		if title == "" {
			continue
		}
		bullet := strings.TrimSpace(cs.BulletSymbol)
		if bullet == "" {
			bullet = defaultBullet
		}
		out = append(out, sectionView{
			Title:  title,
			Bullet: bullet,
			Items:  nonBlank(cs.Items),
		})
	}
	return out
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
