package markdown

import "testing"

func TestDetect_RichInputs(t *testing.T) {
	rich := []string{
		"# Heading",
		"## Deeper heading\nbody",
		"some **bold** text",
		"see [docs](https://example.com)",
		"- first item",
		"* starred item",
		"+ plus item",
		"1. numbered item",
		"> quoted line",
		"```\ncode block\n```",
		"inline `code` span",
		"prose first\n- then a list",
	}
	for _, input := range rich {
		if got := Detect(input); got != FormatMarkdown {
			t.Errorf("Detect(%q) = %s, want markdown", input, got)
		}
	}
}

func TestDetect_PlainInputs(t *testing.T) {
	plain := []string{
		"",
		"Hello world",
		"just ordinary prose, nothing fancy",
		"a * star in the middle",
		"version 1.2 released today",
		"5 > 3 is true", // '>' not at line start
	}
	for _, input := range plain {
		if got := Detect(input); got != FormatPlain {
			t.Errorf("Detect(%q) = %s, want plain", input, got)
		}
	}
}

func TestDetect_Idempotent(t *testing.T) {
	input := "# Title\nBody"
	if Detect(input) != Detect(input) {
		t.Fatal("classification should be stable for identical input")
	}
}

func TestTitle_StripsHeadingMarkers(t *testing.T) {
	if got := Title("# Title\nBody"); got != "Title" {
		t.Fatalf("Title = %q, want %q", got, "Title")
	}
	if got := Title("### Deep heading"); got != "Deep heading" {
		t.Fatalf("Title = %q, want %q", got, "Deep heading")
	}
}

func TestTitle_Truncates(t *testing.T) {
	got := Title("abcdefghijklmnopqrstuvwxyz")
	if len([]rune(got)) != 20 {
		t.Fatalf("Title length = %d runes, want 20", len([]rune(got)))
	}
	if got != "abcdefghijklmnopqrst" {
		t.Fatalf("Title = %q", got)
	}
}

func TestTitle_Fallback(t *testing.T) {
	for _, input := range []string{"", "###", "   \nsecond line"} {
		if got := Title(input); got != fallbackTitle {
			t.Errorf("Title(%q) = %q, want fallback", input, got)
		}
	}
}
