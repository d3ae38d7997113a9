package language

import "testing"

func TestNormalizeCanonicalCodes(t *testing.T) {
	for _, lang := range Supported {
		if got := Normalize(lang, "en"); got != lang {
			t.Errorf("Normalize(%q) = %q, want %q", lang, got, lang)
		}
	}
}

func TestNormalizeRegionSubtags(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"en-US", "en"},
		{"hi-IN", "hi"},
		{"hi_IN", "hi"},
		{"bn-BD", "bn"},
		{"zh-CN", "zh"},
		{"ES-MX", "es"},
		{"ar_EG", "ar"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input, "en"); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeAliases(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hindi", "hi"},
		{"chinese", "zh"},
		{"zh-Hans", "zh"},
		{"cmn", "zh"},
		{"Arabic", "ar"},
		{"arb", "ar"},
		{"Spanish", "es"},
		{"Bengali", "bn"},
		{"tamil", "ta"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input, "en"); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeFallback(t *testing.T) {
	if got := Normalize("klingon", "en"); got != "en" {
		t.Errorf("Normalize(garbage) = %q, want en", got)
	}
	if got := Normalize("", "es"); got != "es" {
		t.Errorf("Normalize(empty, es) = %q, want es", got)
	}
	if got := Normalize("   ", "ar"); got != "ar" {
		t.Errorf("Normalize(whitespace, ar) = %q, want ar", got)
	}
}

func TestIsMostlyAscii(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Hello world", true},
		{"mera order", true},
		{"मेरा ऑर्डर", false},
		{"", true},
		{"?!., ", true},
		{"আমার অর্ডার", false},
		{"मेरा ऑर्डर status", false}, // mixed, below the 0.7 threshold
	}

	for _, tt := range tests {
		if got := IsMostlyAscii(tt.text, 0.7); got != tt.want {
			t.Errorf("IsMostlyAscii(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestMatchesExpectedScript(t *testing.T) {
	tests := []struct {
		text string
		lang string
		want bool
	}{
		{"Hello", "en", true},
		{"mera order", "hi", false},
		{"मेरा ऑर्डर", "hi", true},
		{"আমার অর্ডার", "bn", true},
		{"தமிழ்", "ta", true},
		{"العربية", "ar", true},
		{"中文", "zh", true},
		{"hello", "zz", false},
		{"", "hi", false},
	}

	for _, tt := range tests {
		if got := MatchesExpectedScript(tt.text, tt.lang); got != tt.want {
			t.Errorf("MatchesExpectedScript(%q, %q) = %v, want %v", tt.text, tt.lang, got, tt.want)
		}
	}
}

func TestSourceLang(t *testing.T) {
	tests := []struct {
		text     string
		selected string
		want     string
	}{
		{"mera order", "hi", Auto},     // transliterated Hindi
		{"मेरा ऑर्डर", "hi", "hi"},     // native script, trust the tag
		{"Hello", "en", "en"},          // English always trusted
		{"amar order kothay", "bn", Auto},
		{"hola", "es", "es"},           // Spanish is Latin-script, no override
	}

	for _, tt := range tests {
		if got := SourceLang(tt.text, tt.selected); got != tt.want {
			t.Errorf("SourceLang(%q, %q) = %q, want %q", tt.text, tt.selected, got, tt.want)
		}
	}
}
