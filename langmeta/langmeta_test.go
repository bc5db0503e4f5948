package langmeta

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "zh-Hant", want: "zh-Hant"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("native and english names", func(t *testing.T) {
		got := Resolve("fr")
		if got.Name != "français" || got.English != "French" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("region flag", func(t *testing.T) {
		got := Resolve("zh_TW")
		if got.Tag != "zh-TW" {
			t.Fatalf("Tag = %q, want zh-TW", got.Tag)
		}
		if got.Flag != "\U0001F1F9\U0001F1FC" {
			t.Fatalf("Flag = %q, want TW flag", got.Flag)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("unknown")
		if got.Name != "unknown" || got.Flag != "" {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
	})
}

func TestSameLanguage(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"zh-TW", "zh-TW", true},
		{"zh-CN", "zh-TW", true},
		{"zh", "zh-TW", true},
		{"ZH_tw", "zh-TW", true},
		{"en", "zh-TW", false},
		{"ja", "zh-TW", false},
		{"unknown", "zh-TW", false},
		{"", "zh-TW", false},
	}
	for _, tc := range cases {
		if got := SameLanguage(tc.a, tc.b); got != tc.want {
			t.Fatalf("SameLanguage(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
