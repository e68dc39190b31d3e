package composition

import (
	"fmt"

	"unwrapped/internal/profile"
	"unwrapped/internal/services"
)

// DesignedLanguage names a language with bespoke artwork.
type DesignedLanguage string

const (
	LangJava       DesignedLanguage = "Java"
	LangPython     DesignedLanguage = "Python"
	LangJavaScript DesignedLanguage = "JavaScript"
	LangTypeScript DesignedLanguage = "TypeScript"
	LangGo         DesignedLanguage = "Go"
	LangCPP        DesignedLanguage = "C++"
	LangCSharp     DesignedLanguage = "C#"
	LangC          DesignedLanguage = "C"
	LangRuby       DesignedLanguage = "Ruby"
	LangPHP        DesignedLanguage = "PHP"
	LangSwift      DesignedLanguage = "Swift"
	LangKotlin     DesignedLanguage = "Kotlin"
	LangDart       DesignedLanguage = "Dart"
	LangZig        DesignedLanguage = "Zig"
	LangRust1      DesignedLanguage = "Rust1"
	LangRust2      DesignedLanguage = "Rust2"
	LangRust3      DesignedLanguage = "Rust3"
)

// rustLanguageName is the upstream name split across the three Rust designs.
const rustLanguageName = "Rust"

var designedLanguages = map[string]DesignedLanguage{
	string(LangJava):       LangJava,
	string(LangPython):     LangPython,
	string(LangJavaScript): LangJavaScript,
	string(LangTypeScript): LangTypeScript,
	string(LangGo):         LangGo,
	string(LangCPP):        LangCPP,
	string(LangCSharp):     LangCSharp,
	string(LangC):          LangC,
	string(LangRuby):       LangRuby,
	string(LangPHP):        LangPHP,
	string(LangSwift):      LangSwift,
	string(LangKotlin):     LangKotlin,
	string(LangDart):       LangDart,
	string(LangZig):        LangZig,
	string(LangRust1):      LangRust1,
	string(LangRust2):      LangRust2,
	string(LangRust3):      LangRust3,
}

// IsDesignedLanguage reports whether name is a canonical designed language.
func IsDesignedLanguage(name string) bool {
	_, ok := designedLanguages[name]
	return ok
}

// RustVariant picks one of the three Rust designs from a shared draw.
func RustVariant(draw float64) DesignedLanguage {
	switch {
	case draw < 1.0/3.0:
		return LangRust1
	case draw < 2.0/3.0:
		return LangRust2
	default:
		return LangRust3
	}
}

// MatchDesigned resolves an upstream language name to its design. Matching
// is exact and case-sensitive. Names without a design return an error
// wrapping services.ErrUnclassifiableLanguage.
func MatchDesigned(name string, rustDraw float64) (DesignedLanguage, error) {
	if name == rustLanguageName {
		return RustVariant(rustDraw), nil
	}
	if lang, ok := designedLanguages[name]; ok {
		return lang, nil
	}
	return "", fmt.Errorf("%w: %q", services.ErrUnclassifiableLanguage, name)
}

// ClassifyLanguage maps an upstream entry to a slot. An unclassifiable
// language becomes an "other" slot with the upstream name and color
// untouched; the error never leaves this function. rustDraw must be the same
// value for every slot of one user.
func ClassifyLanguage(entry profile.TopLanguage, rustDraw float64) Language {
	lang, err := MatchDesigned(entry.LanguageName, rustDraw)
	if err != nil {
		return Language{Type: LanguageOther, Name: entry.LanguageName, Color: entry.Color}
	}
	return Language{Type: LanguageDesigned, Name: string(lang)}
}
