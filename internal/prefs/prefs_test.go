package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileIsZero(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if p := Load(""); p != (Prefs{}) {
		t.Fatalf("Load = %+v, want zero", p)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "minicart")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "prefs.toml"), []byte("theme = \" Slate \"\nopen = true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p := Load("")
	if p.Theme != "Slate" || !p.Open {
		t.Fatalf("Load = %+v, want Slate/open", p)
	}
}

func TestLoad_MalformedFileIsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("theme = "), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if p := Load(path); p != (Prefs{}) {
		t.Fatalf("Load = %+v, want zero", p)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")

	want := Prefs{Theme: "Kanagawa", Open: true}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := Load(path); got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}
