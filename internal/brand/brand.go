// Package brand holds the read-only business display data merged into
// outgoing lead notifications.
package brand

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v2"
)

const defaultSubmittedLayout = "January 2, 2006 at 3:04 PM MST"

// Context is resolved once at startup and never mutated.
type Context struct {
	Name            string
	Phone           string
	Email           string
	SiteURL         string
	Location        *time.Location
	SubmittedLayout string
}

// Settings is the raw, string-typed form of a Context as it appears in env or YAML.
type Settings struct {
	Name            string `yaml:"name"`
	Phone           string `yaml:"phone"`
	Email           string `yaml:"email"`
	SiteURL         string `yaml:"siteUrl"`
	Timezone        string `yaml:"timezone"`
	SubmittedLayout string `yaml:"submittedLayout"`
}

// New builds a Context. An unknown timezone is an error; an empty one means UTC.
func New(s Settings) (Context, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Context{}, fmt.Errorf("brand: load timezone %q: %w", tz, err)
		}
		loc = l
	}
	layout := strings.TrimSpace(s.SubmittedLayout)
	if layout == "" {
		layout = defaultSubmittedLayout
	}
	return Context{
		Name:            strings.TrimSpace(s.Name),
		Phone:           strings.TrimSpace(s.Phone),
		Email:           strings.TrimSpace(s.Email),
		SiteURL:         strings.TrimRight(strings.TrimSpace(s.SiteURL), "/"),
		Location:        loc,
		SubmittedLayout: layout,
	}, nil
}

// LoadFile overlays the YAML file at path onto base. Blank YAML values keep the base value.
func LoadFile(path string, base Settings) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("brand: read %s: %w", path, err)
	}
	var file Settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("brand: parse %s: %w", path, err)
	}
	return merge(base, file), nil
}

func merge(base, over Settings) Settings {
	pick := func(b, o string) string {
		if strings.TrimSpace(o) != "" {
			return o
		}
		return b
	}
	return Settings{
		Name:            pick(base.Name, over.Name),
		Phone:           pick(base.Phone, over.Phone),
		Email:           pick(base.Email, over.Email),
		SiteURL:         pick(base.SiteURL, over.SiteURL),
		Timezone:        pick(base.Timezone, over.Timezone),
		SubmittedLayout: pick(base.SubmittedLayout, over.SubmittedLayout),
	}
}

// FormatSubmitted renders t in the brand's timezone for notification bodies.
func (c Context) FormatSubmitted(t time.Time) string {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	layout := c.SubmittedLayout
	if layout == "" {
		layout = defaultSubmittedLayout
	}
	return t.In(loc).Format(layout)
}

// DisplayName falls back to a generic label when no name is configured.
func (c Context) DisplayName() string {
	if c.Name == "" {
		return "1031 Exchange"
	}
	return c.Name
}
