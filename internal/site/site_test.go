package site

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSiteFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write site file: %v", err)
	}
	return file
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	s, err := Load("  ")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.Headline != "Welcome to Picture Gallery" {
		t.Fatalf("unexpected headline: %q", s.Headline)
	}
	if len(s.Placeholders) != 5 || s.Placeholders[0] != "/images/1.jpg" || s.Placeholders[4] != "/images/5.jpg" {
		t.Fatalf("unexpected placeholders: %v", s.Placeholders)
	}
	if len(s.Nav) != 2 || s.Nav[1].Href != "/pictures" {
		t.Fatalf("unexpected nav: %v", s.Nav)
	}
}

func TestLoadYAMLFillsMissingFields(t *testing.T) {
	file := writeSiteFile(t, "site.yaml", `
title: " Holiday Snaps "
placeholders:
  - /images/a.jpg
  - ""
  - /images/b.jpg
`)

	s, err := Load(file)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.Title != "Holiday Snaps" {
		t.Fatalf("unexpected title: %q", s.Title)
	}
	if s.Headline != Default().Headline {
		t.Fatalf("expected default headline, got %q", s.Headline)
	}
	if len(s.Placeholders) != 2 {
		t.Fatalf("expected blank placeholder dropped, got %v", s.Placeholders)
	}
	if len(s.Nav) != 2 {
		t.Fatalf("expected default nav, got %v", s.Nav)
	}
}

func TestLoadJSON(t *testing.T) {
	file := writeSiteFile(t, "site.json", `{
  "headline": "Hello",
  "nav": [{"label": "Home", "href": "/"}, {"label": "About", "href": "/about"}]
}`)

	s, err := Load(file)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.Headline != "Hello" {
		t.Fatalf("unexpected headline: %q", s.Headline)
	}
	if len(s.Nav) != 2 || s.Nav[1].Label != "About" {
		t.Fatalf("unexpected nav: %v", s.Nav)
	}
}

func TestLoadRejectsNavWithoutHref(t *testing.T) {
	file := writeSiteFile(t, "site.yml", `
nav:
  - label: Home
`)

	if _, err := Load(file); err == nil {
		t.Fatalf("expected nav validation error, got nil")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	file := writeSiteFile(t, "site.json", `{"title": `)

	if _, err := Load(file); err == nil {
		t.Fatalf("expected decode error, got nil")
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	file := writeSiteFile(t, "site.toml", `title = "x"`)

	if _, err := Load(file); err == nil {
		t.Fatalf("expected unrecognized format error, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected open error, got nil")
	}
}

func TestPlaceholderCycles(t *testing.T) {
	s := Default()

	cases := map[int]string{
		0: "/images/1.jpg",
		4: "/images/5.jpg",
		5: "/images/1.jpg",
		7: "/images/3.jpg",
	}
	for idx, want := range cases {
		if got := s.Placeholder(idx); got != want {
			t.Fatalf("Placeholder(%d) = %q, want %q", idx, got, want)
		}
	}

	if got := (Site{}).Placeholder(3); got != "" {
		t.Fatalf("expected empty placeholder without a list, got %q", got)
	}
}

func TestPlaceholderForIsStable(t *testing.T) {
	s := Default()

	first := s.PlaceholderFor("42")
	if first == "" {
		t.Fatalf("expected a placeholder for id 42")
	}
	if again := s.PlaceholderFor("42"); again != first {
		t.Fatalf("placeholder changed between calls: %q then %q", first, again)
	}

	found := false
	for _, p := range s.Placeholders {
		if p == first {
			found = true
		}
	}
	if !found {
		t.Fatalf("placeholder %q not in configured list", first)
	}
}
