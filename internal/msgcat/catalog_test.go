package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("errors.not_your_turn", nil, "x"); got != "Not your turn" {
		t.Fatalf("unexpected text %q", got)
	}
	got, err := c.Render("errors.square_out_of_range", map[string]string{"Field": "to"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Square out of range: to must be an integer between 0 and 63" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestTextFallbacks(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("errors.nope", nil, "fallback"); got != "fallback" {
		t.Fatalf("missing key should fall back, got %q", got)
	}
	// missing template data
	if got := c.Text("errors.invalid_flag", map[string]string{}, "fallback"); got != "fallback" {
		t.Fatalf("render error should fall back, got %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Text("errors.room_full", nil, "fallback"); got != "fallback" {
		t.Fatalf("nil catalog should fall back, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "10-errors.yaml"), []byte("errors:\n  room_full: \"Two players already\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("errors.room_full", nil, ""); got != "Two players already" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("errors.room_not_found", nil, ""); got != "Room not found" {
		t.Fatalf("default lost: %q", got)
	}
}

func TestOverrideDuplicateKeysRejected(t *testing.T) {
	dir := t.TempDir()
	body := []byte("errors:\n  room_full: \"A\"\n")
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestOverrideBadTemplateRejected(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("errors:\n  room_full: \"{{.Broken\"\n"), 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected template parse error")
	}
}
