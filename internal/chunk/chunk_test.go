package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextIsUntouched(t *testing.T) {
	t.Parallel()

	head, tail := Split("hello", 10)
	if head != "hello" || tail != "" {
		t.Fatalf("Split() = (%q, %q), want (%q, %q)", head, tail, "hello", "")
	}
}

func TestSplitASCIIBoundary(t *testing.T) {
	t.Parallel()

	head, tail := Split("abcdefgh", 4)
	if head != "abcd" || tail != "efgh" {
		t.Fatalf("Split() = (%q, %q), want (%q, %q)", head, tail, "abcd", "efgh")
	}
}

func TestSplitDoesNotCutMultiByteRune(t *testing.T) {
	t.Parallel()

	// Each hiragana rune is 3 bytes; a cut at 4 lands mid-rune and must
	// back off to byte 3.
	head, tail := Split("あいう", 4)
	if head != "あ" || tail != "いう" {
		t.Fatalf("Split() = (%q, %q), want (%q, %q)", head, tail, "あ", "いう")
	}
}

func TestSplitReassemblesExactly(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"こんにちは、世界。ChatGPTです。",
		strings.Repeat("寿司🍣とabc", 40),
		"plain ascii only",
		"",
	}
	for _, text := range inputs {
		for maxBytes := 4; maxBytes <= 32; maxBytes++ {
			head, tail := Split(text, maxBytes)
			if head+tail != text {
				t.Fatalf("Split(%q, %d) lost bytes: head=%q tail=%q", text, maxBytes, head, tail)
			}
			if len(head) > maxBytes {
				t.Fatalf("Split(%q, %d) head is %d bytes", text, maxBytes, len(head))
			}
			if head != "" && !utf8.ValidString(head) {
				t.Fatalf("Split(%q, %d) produced invalid UTF-8 head %q", text, maxBytes, head)
			}
		}
	}
}
