package subtitles

import (
	"strings"
	"testing"
)

func TestNormalizeStripsStructureAndDuplicates(t *testing.T) {
	raw := "WEBVTT\n\n00:00:01.000 --> 00:00:03.000\nHello <00:00:01.400>world\nHello world\nHello world\n"
	got := Normalizer{}.Normalize([]byte(raw))
	if got != "Hello world" {
		t.Fatalf("Normalize = %q, want %q", got, "Hello world")
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	if got := (Normalizer{}).Normalize(nil); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestNormalizeStructureOnlyInput(t *testing.T) {
	raw := strings.Join([]string{
		"WEBVTT",
		"Kind: captions",
		"Language: en",
		"NOTE some comment",
		"00:00:01.000 --> 00:00:02.000 align:start position:0%",
		"",
	}, "\n")
	if got := (Normalizer{}).Normalize([]byte(raw)); got != "" {
		t.Fatalf("expected empty output for structure-only input, got %q", got)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	raw := []byte("WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n<c.colorE5E5E5>first</c>\nsecond\nfirst\n")
	first := Normalizer{}.Normalize(raw)
	for i := 0; i < 3; i++ {
		if got := (Normalizer{}).Normalize(raw); got != first {
			t.Fatalf("normalize not deterministic: %q vs %q", got, first)
		}
	}
}

func TestLinesStripsStylingTags(t *testing.T) {
	raw := []byte("<c.colorCCCCCC>styled</c> and <v Roger>spoken</v>")
	got := Lines(raw)
	if len(got) != 1 || got[0] != "styled and spoken" {
		t.Fatalf("Lines = %#v", got)
	}
}

func TestLinesCollapsesWhitespace(t *testing.T) {
	got := Lines([]byte("  several\t words   here  "))
	if len(got) != 1 || got[0] != "several words here" {
		t.Fatalf("Lines = %#v", got)
	}
}

func TestLinesHandlesCRLF(t *testing.T) {
	got := Lines([]byte("WEBVTT\r\n\r\none\r\ntwo\r\n"))
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("Lines = %#v", got)
	}
}

func TestDedupeConsecutive(t *testing.T) {
	got := Dedupe([]string{"a", "a", "b", "b", "b", "a"}, 0)
	want := []string{"a", "b", "a"}
	if !equal(got, want) {
		t.Fatalf("Dedupe = %#v, want %#v", got, want)
	}
}

func TestDedupeRollingWindow(t *testing.T) {
	// "a" reappears within the window and is suppressed; "z" after the
	// window boundary passes through.
	in := []string{"a", "b", "c", "a", "d", "e", "f", "g", "h", "a"}
	got := Dedupe(in, 6)
	want := []string{"a", "b", "c", "d", "e", "f", "g", "h", "a"}
	if !equal(got, want) {
		t.Fatalf("Dedupe = %#v, want %#v", got, want)
	}
}

func TestDedupeWindowDisabled(t *testing.T) {
	in := []string{"a", "b", "a", "b"}
	got := Dedupe(in, -1)
	if !equal(got, in) {
		t.Fatalf("rolling dedup should be disabled, got %#v", got)
	}
}

func TestNormalizeZeroWindowIsConsecutiveOnly(t *testing.T) {
	got := (Normalizer{Window: 0}).Normalize([]byte("a\nb\na\n"))
	if got != "a\nb\na" {
		t.Fatalf("Normalize = %q, want %q", got, "a\nb\na")
	}
}

func TestDedupeNoAdjacentDuplicatesProperty(t *testing.T) {
	in := []string{"x", "x", "y", "x", "y", "y", "z", "z", "x"}
	got := Dedupe(in, 6)
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Fatalf("adjacent duplicate %q at %d in %#v", got[i], i, got)
		}
	}
}

func TestDedupeWindowProperty(t *testing.T) {
	in := []string{"a", "b", "c", "d", "b", "e", "f", "g", "h", "i", "j", "b"}
	got := Dedupe(in, 6)
	for i, line := range got {
		start := i - 6
		if start < 0 {
			start = 0
		}
		for j := start; j < i; j++ {
			if got[j] == line {
				t.Fatalf("line %q at %d repeats within window (%#v)", line, i, got)
			}
		}
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
