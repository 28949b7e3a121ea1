package portfolio

import "strings"

// ProjectInput is the project form
type ProjectInput struct {
	Title        string
	Description  string
	Technologies string
	GithubURL    string
	LiveDemoURL  string
	IsPublished  bool
	Images       []Upload
	// RemoveImageURLs lists stored images to drop on update
	RemoveImageURLs []string
}

// SkillInput is the skill form. Icon is nil when no file was chosen.
type SkillInput struct {
	Name     string
	Category string
	Icon     *Upload
}

// ParseTechnologies splits a comma separated list, trimming entries and
// dropping empty ones.
func ParseTechnologies(s string) []string {
	techs := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			techs = append(techs, part)
		}
	}
	return techs
}

// Checkbox reports whether an HTML checkbox value is checked
func Checkbox(value string) bool {
	return value == "on"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
