package ui

import "testing"

func TestGetThemeFallsBack(t *testing.T) {
	if got := GetTheme("nope").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(nope) = %q, want Nightfox", got)
	}
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate) = %q, want Slate", got)
	}
}

func TestNextThemeCycles(t *testing.T) {
	names := ThemeNames()
	for i, name := range names {
		want := names[(i+1)%len(names)]
		if got := NextTheme(name); got != want {
			t.Fatalf("NextTheme(%q) = %q, want %q", name, got, want)
		}
	}
	if got := NextTheme("unknown"); got != names[0] {
		t.Fatalf("NextTheme(unknown) = %q, want %q", got, names[0])
	}
}

func TestThemesDefinePhaseColors(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, phase := range []string{"idle", "fetching", "mutating", "offline", "cached"} {
			if th.PhaseColors[phase] == "" {
				t.Fatalf("theme %s missing phase color %q", name, phase)
			}
		}
	}
}
