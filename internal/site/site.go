package site

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package site holds the gallery's copy, navigation and placeholder images,
// loaded from an optional YAML/JSON file.

// Link is one navigation entry.
type Link struct {
	Label string `json:"label" yaml:"label"`
	Href  string `json:"href" yaml:"href"`
}

// Site is the copy rendered around the pictures.
type Site struct {
	Title        string   `json:"title" yaml:"title"`
	Headline     string   `json:"headline" yaml:"headline"`
	Tagline      string   `json:"tagline" yaml:"tagline"`
	GalleryTitle string   `json:"gallery_title" yaml:"gallery_title"`
	Nav          []Link   `json:"nav" yaml:"nav"`
	Placeholders []string `json:"placeholders" yaml:"placeholders"`
}

const placeholderCount = 5

// Default returns the built-in copy.
func Default() Site {
	placeholders := make([]string, placeholderCount)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("/images/%d.jpg", i+1)
	}
	return Site{
		Title:        "Picture Gallery",
		Headline:     "Welcome to Picture Gallery",
		Tagline:      "Discover and explore beautiful images from around the world. Browse our curated collection of stunning photographs.",
		GalleryTitle: "Picture Gallery",
		Nav: []Link{
			{Label: "Home", Href: "/"},
			{Label: "Pictures", Href: "/pictures"},
		},
		Placeholders: placeholders,
	}
}

// Load reads a site file and fills unset fields from Default. An empty path
// returns Default.
func Load(path string) (Site, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return Site{}, fmt.Errorf("open site file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return Site{}, fmt.Errorf("read site file: %w", err)
	}

	s, err := parse(raw, filepath.Ext(path))
	if err != nil {
		return Site{}, err
	}

	s = sanitize(s)
	if err := validate(s); err != nil {
		return Site{}, err
	}
	return s, nil
}

// Placeholder returns the placeholder image for the idx-th picture, cycling
// through the configured list.
func (s Site) Placeholder(idx int) string {
	if len(s.Placeholders) == 0 {
		return ""
	}
	if idx < 0 {
		idx = -idx
	}
	return s.Placeholders[idx%len(s.Placeholders)]
}

// PlaceholderFor picks a stable placeholder for a picture id.
func (s Site) PlaceholderFor(id string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.Placeholder(int(h.Sum32() & 0x7fffffff))
}

type unmarshalFn func([]byte, any) error

func parse(data []byte, ext string) (Site, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var s Site
		if err := d.fn(data, &s); err != nil {
			lastErr = fmt.Errorf("decode %s site file: %w", d.name, err)
			continue
		}
		return s, nil
	}

	if lastErr != nil {
		return Site{}, lastErr
	}
	return Site{}, errors.New("site file format not recognized (expected YAML or JSON)")
}

func sanitize(s Site) Site {
	def := Default()

	s.Title = orDefault(s.Title, def.Title)
	s.Headline = orDefault(s.Headline, def.Headline)
	s.Tagline = orDefault(s.Tagline, def.Tagline)
	s.GalleryTitle = orDefault(s.GalleryTitle, def.GalleryTitle)

	nav := s.Nav[:0:0]
	for _, l := range s.Nav {
		l.Label = strings.TrimSpace(l.Label)
		l.Href = strings.TrimSpace(l.Href)
		nav = append(nav, l)
	}
	if len(nav) == 0 {
		nav = def.Nav
	}
	s.Nav = nav

	placeholders := s.Placeholders[:0:0]
	for _, p := range s.Placeholders {
		if p = strings.TrimSpace(p); p != "" {
			placeholders = append(placeholders, p)
		}
	}
	if len(placeholders) == 0 {
		placeholders = def.Placeholders
	}
	s.Placeholders = placeholders

	return s
}

func validate(s Site) error {
	for i, l := range s.Nav {
		if l.Label == "" {
			return fmt.Errorf("nav[%d]: label is required", i)
		}
		if l.Href == "" {
			return fmt.Errorf("nav[%d]: href is required for %q", i, l.Label)
		}
	}
	return nil
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
