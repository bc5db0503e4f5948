package i18n

import "testing"

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestDetectLanguagePriorityAndNormalization(t *testing.T) {
	t.Run("LANGUAGE has highest priority", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "ru_RU.UTF-8:en_US")
		t.Setenv("LC_ALL", "de_DE.UTF-8")

		if got := detectLanguage(); got != "ru_RU" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "ru_RU")
		}
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")

		if got := detectLanguage(); got != "fr_FR" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr_FR")
		}
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		if got := detectLanguage(); got != "en" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "en")
		}
	})
}

func TestTAndNFallbackWhenUninitialized(t *testing.T) {
	old := po
	po = nil
	t.Cleanup(func() { po = old })

	if got := T("Hello"); got != "Hello" {
		t.Fatalf("T fallback = %q, want %q", got, "Hello")
	}

	if got := N("file", "files", 1); got != "file" {
		t.Fatalf("N singular fallback = %q, want %q", got, "file")
	}

	if got := N("file", "files", 2); got != "files" {
		t.Fatalf("N plural fallback = %q, want %q", got, "files")
	}
}

func TestEmbeddedTraditionalChinese(t *testing.T) {
	old := po
	t.Cleanup(func() { po = old })

	Init("zh_TW")

	if got := T("%s request timed out", "OpenAI"); got != "OpenAI 請求逾時" {
		t.Fatalf("T() = %q, want %q", got, "OpenAI 請求逾時")
	}
	if got := T("%s API error (%d): %s", "Groq", 500, "boom"); got != "Groq API 錯誤 (500): boom" {
		t.Fatalf("T() = %q", got)
	}
	if got := N("%d task shed", "%d tasks shed", 3, 3); got != "已略過 3 個翻譯任務" {
		t.Fatalf("N() = %q", got)
	}
	if got := T("not in the catalog %d", 7); got != "not in the catalog 7" {
		t.Fatalf("T() passthrough = %q", got)
	}
}

func TestTFormatsWhenUninitialized(t *testing.T) {
	old := po
	po = nil
	t.Cleanup(func() { po = old })

	if got := T("%s connection failed", "Gemini"); got != "Gemini connection failed" {
		t.Fatalf("T() = %q", got)
	}
	noVerbs := "100%" // non-constant so vet's printf check does not flag the intentional bare %
	if got := T(noVerbs); got != "100%" {
		t.Fatalf("T() without vars = %q, want unformatted", got)
	}
}
