package composition_test

import (
	"encoding/json"
	"errors"
	"testing"

	"unwrapped/internal/composition"
	"unwrapped/internal/profile"
	"unwrapped/internal/services"
)

func TestClassifyLanguage(t *testing.T) {
	tests := []struct {
		name  string
		entry profile.TopLanguage
		draw  float64
		want  composition.Language
	}{
		{"designed", profile.TopLanguage{LanguageName: "Go", Color: "#00ADD8"}, 0, composition.Language{Type: composition.LanguageDesigned, Name: "Go"}},
		{"plus plus", profile.TopLanguage{LanguageName: "C++"}, 0, composition.Language{Type: composition.LanguageDesigned, Name: "C++"}},
		{"rust low", profile.TopLanguage{LanguageName: "Rust"}, 0.1, composition.Language{Type: composition.LanguageDesigned, Name: "Rust1"}},
		{"rust first boundary", profile.TopLanguage{LanguageName: "Rust"}, 1.0 / 3.0, composition.Language{Type: composition.LanguageDesigned, Name: "Rust2"}},
		{"rust second boundary", profile.TopLanguage{LanguageName: "Rust"}, 2.0 / 3.0, composition.Language{Type: composition.LanguageDesigned, Name: "Rust3"}},
		{"unknown", profile.TopLanguage{LanguageName: "Elm", Color: "#60B5CC"}, 0, composition.Language{Type: composition.LanguageOther, Name: "Elm", Color: "#60B5CC"}},
		{"case sensitive", profile.TopLanguage{LanguageName: "go", Color: "#fff"}, 0, composition.Language{Type: composition.LanguageOther, Name: "go", Color: "#fff"}},
		{"variant names are not upstream names", profile.TopLanguage{LanguageName: "rust", Color: "#111"}, 0, composition.Language{Type: composition.LanguageOther, Name: "rust", Color: "#111"}},
		{"empty", profile.TopLanguage{}, 0, composition.Language{Type: composition.LanguageOther}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := composition.ClassifyLanguage(tc.entry, tc.draw); got != tc.want {
				t.Fatalf("got %#v want %#v", got, tc.want)
			}
		})
	}
}

func TestLanguageJSONShapes(t *testing.T) {
	designed, err := json.Marshal(composition.Language{Type: composition.LanguageDesigned, Name: "Rust2"})
	if err != nil {
		t.Fatalf("marshal designed: %v", err)
	}
	if string(designed) != `{"type":"designed","name":"Rust2"}` {
		t.Fatalf("unexpected designed json: %s", designed)
	}
	other, err := json.Marshal(composition.Language{Type: composition.LanguageOther, Name: "Elm"})
	if err != nil {
		t.Fatalf("marshal other: %v", err)
	}
	if string(other) != `{"type":"other","color":"","name":"Elm"}` {
		t.Fatalf("unexpected other json: %s", other)
	}

	var decoded composition.Language
	if err := json.Unmarshal([]byte(`{"type":"designed","name":"Zig"}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != composition.LanguageDesigned || decoded.Name != "Zig" {
		t.Fatalf("unexpected decoded language: %#v", decoded)
	}
	if err := json.Unmarshal([]byte(`{"type":"designed","name":"Elm"}`), &decoded); err == nil {
		t.Fatal("expected error for unknown designed language")
	}
}

func TestParseRocket(t *testing.T) {
	if r, err := composition.ParseRocket("orange"); err != nil || r != composition.RocketOrange {
		t.Fatalf("ParseRocket(orange) = %q, %v", r, err)
	}
	if _, err := composition.ParseRocket("green"); err == nil {
		t.Fatal("expected error for unknown rocket")
	}
}

func TestMatchDesigned(t *testing.T) {
	if lang, err := composition.MatchDesigned("Go", 0); err != nil || lang != composition.LangGo {
		t.Fatalf("expected Go, got %q %v", lang, err)
	}
	if lang, err := composition.MatchDesigned("Rust", 0.5); err != nil || lang != composition.LangRust2 {
		t.Fatalf("expected rust2, got %q %v", lang, err)
	}
	for _, name := range []string{"Elm", "go", ""} {
		if _, err := composition.MatchDesigned(name, 0); !errors.Is(err, services.ErrUnclassifiableLanguage) {
			t.Fatalf("%q: expected ErrUnclassifiableLanguage, got %v", name, err)
		}
	}
}
