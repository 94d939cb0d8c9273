// Package content holds the portfolio's static sections. The document
// is YAML; a default copy is embedded in the binary and CONTENT_FILE
// can point at a replacement.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

type Portfolio struct {
	Personal   Personal   `yaml:"personal"`
	Hero       Hero       `yaml:"hero"`
	About      About      `yaml:"about"`
	Skills     Skills     `yaml:"skills"`
	Projects   Projects   `yaml:"projects"`
	Education  Education  `yaml:"education"`
	Experience Experience `yaml:"experience"`
	Contact    Contact    `yaml:"contact"`
	Footer     Footer     `yaml:"footer"`
}

type Personal struct {
	Name      string `yaml:"name"`
	Role      string `yaml:"role"`
	Location  string `yaml:"location"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone"`
	LinkedIn  string `yaml:"linkedin"`
	GitHub    string `yaml:"github"`
	Instagram string `yaml:"instagram"`
	ResumeURL string `yaml:"resumeUrl"`
}

type Hero struct {
	HeadlineOne  string   `yaml:"headlineOne"`
	HeadlineTwo  string   `yaml:"headlineTwo"`
	Subheadline  string   `yaml:"subheadline"`
	TypingCycle  []string `yaml:"typingCycle"`
	PrimaryCTA   string   `yaml:"primaryCta"`
	SecondaryCTA string   `yaml:"secondaryCta"`
}

type About struct {
	Title      string   `yaml:"title"`
	Bio        string   `yaml:"bio"` // markdown
	Highlights []string `yaml:"highlights"`
}

type Skills struct {
	Title  string       `yaml:"title"`
	Groups []SkillGroup `yaml:"groups"`
}

type SkillGroup struct {
	Heading string   `yaml:"heading"`
	Items   []string `yaml:"items"`
}

type Projects struct {
	Title string    `yaml:"title"`
	Cards []Project `yaml:"cards"`
}

type Project struct {
	Name         string   `yaml:"name"`
	Year         string   `yaml:"year"`
	Description  string   `yaml:"description"` // markdown
	Tags         []string `yaml:"tags"`
	Links        []Link   `yaml:"links"`
	ImpactPoints []string `yaml:"impactPoints"`
}

// Link is a labelled URL. An empty URL hides the link.
type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

type Education struct {
	Title   string           `yaml:"title"`
	Entries []EducationEntry `yaml:"entries"`
}

type EducationEntry struct {
	Period  string   `yaml:"period"`
	Degree  string   `yaml:"degree"`
	Org     string   `yaml:"org"`
	Details []string `yaml:"details"`
}

type Experience struct {
	Title string           `yaml:"title"`
	Items []ExperienceItem `yaml:"items"`
}

type ExperienceItem struct {
	Role    string   `yaml:"role"`
	Org     string   `yaml:"org"`
	Period  string   `yaml:"period"`
	Bullets []string `yaml:"bullets"`
}

type Contact struct {
	Title       string         `yaml:"title"`
	Copy        string         `yaml:"copy"`
	SubmitLabel string         `yaml:"submitLabel"`
	AltContacts []ContactLabel `yaml:"altContacts"`
}

type ContactLabel struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

type Footer struct {
	Note string `yaml:"note"`
}

// Default returns the embedded portfolio.
func Default() (*Portfolio, error) {
	return Parse(defaultDocument)
}

// Load reads the portfolio from path, or the embedded default when
// path is empty.
func Load(path string) (*Portfolio, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, rejecting unknown keys, and validates
// the result.
func Parse(data []byte) (*Portfolio, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Portfolio
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate reports every missing required value and malformed link.
func (p *Portfolio) Validate() error {
	var errs []error
	need := func(value, what string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", what))
		}
	}
	checkURL := func(raw, what string) {
		if raw == "" {
			return
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme == "" && u.Path == "") {
			errs = append(errs, fmt.Errorf("%s: invalid URL %q", what, raw))
		}
	}

	need(p.Personal.Name, "personal.name")
	if p.Personal.Email != "" {
		if _, err := mail.ParseAddress(p.Personal.Email); err != nil {
			errs = append(errs, fmt.Errorf("personal.email: %w", err))
		}
	}
	checkURL(p.Personal.LinkedIn, "personal.linkedin")
	checkURL(p.Personal.GitHub, "personal.github")
	checkURL(p.Personal.Instagram, "personal.instagram")
	checkURL(p.Personal.ResumeURL, "personal.resumeUrl")

	need(p.About.Title, "about.title")
	need(p.Skills.Title, "skills.title")
	need(p.Projects.Title, "projects.title")
	need(p.Education.Title, "education.title")
	need(p.Experience.Title, "experience.title")
	need(p.Contact.Title, "contact.title")

	for i, card := range p.Projects.Cards {
		need(card.Name, fmt.Sprintf("projects.cards[%d].name", i))
		for j, link := range card.Links {
			checkURL(link.URL, fmt.Sprintf("projects.cards[%d].links[%d]", i, j))
		}
	}
	for i, group := range p.Skills.Groups {
		need(group.Heading, fmt.Sprintf("skills.groups[%d].heading", i))
	}

	return errors.Join(errs...)
}
