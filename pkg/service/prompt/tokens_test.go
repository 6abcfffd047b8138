package prompt

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestTruncateToTokenLimitWithinBudget(t *testing.T) {
	text := strings.Repeat("a", 100)
	if got := TruncateToTokenLimit(text, 100, "pl"); got != text {
		t.Errorf("text within budget was modified")
	}
}

func TestTruncateToTokenLimitOverBudget(t *testing.T) {
	text := strings.Repeat("a", 10000)
	got := TruncateToTokenLimit(text, 100, "pl")

	// 100 tokens * 4 chars * 0.8 safety = 320 chars of content.
	if !strings.HasPrefix(got, strings.Repeat("a", 320)) {
		t.Errorf("truncated text does not keep the expected prefix")
	}
	if !strings.Contains(got, "CV zostało skrócone") {
		t.Errorf("missing Polish truncation notice: %q", got)
	}
	if strings.Contains(got[320:], "aaa") {
		t.Errorf("content kept beyond the safety target")
	}
}

func TestTruncateToTokenLimitLanguageFallback(t *testing.T) {
	text := strings.Repeat("a", 10000)

	en := TruncateToTokenLimit(text, 100, "en")
	if !strings.Contains(en, "The CV was shortened") {
		t.Errorf("missing English truncation notice")
	}

	// Unknown languages fall back to Polish.
	de := TruncateToTokenLimit(text, 100, "de")
	if !strings.Contains(de, "CV zostało skrócone") {
		t.Errorf("unknown language did not fall back to Polish notice")
	}
}

func TestTruncateDoesNotSplitRunes(t *testing.T) {
	text := strings.Repeat("ż", 10000)
	got := TruncateToTokenLimit(text, 100, "pl")
	if !strings.HasPrefix(got, "ż") || strings.ContainsRune(got, '�') {
		t.Errorf("truncation split a multi-byte rune")
	}
}

func TestCondenseCvTextShortUnchanged(t *testing.T) {
	text := strings.Repeat("a", 15000)
	if got := CondenseCvText(text); got != text {
		t.Errorf("text at the ceiling was modified")
	}
}

func TestCondenseCvTextHeadTail(t *testing.T) {
	head := strings.Repeat("H", 7500)
	middle := strings.Repeat("M", 5000)
	tail := strings.Repeat("T", 7500)
	got := CondenseCvText(head + middle + tail)

	if !strings.HasPrefix(got, head) {
		t.Errorf("head was not kept verbatim")
	}
	if !strings.HasSuffix(got, tail) {
		t.Errorf("tail was not kept verbatim")
	}
	if n := strings.Count(got, "[...CZĘŚĆ ŚRODKOWA POMINIĘTA...]"); n != 1 {
		t.Errorf("expected exactly one omission marker, got %d", n)
	}
	if strings.Contains(got, "M") {
		t.Errorf("middle content survived condensing")
	}
}

func TestClip(t *testing.T) {
	if got := Clip("abcdef", 3); got != "abc" {
		t.Errorf("Clip = %q, want %q", got, "abc")
	}
	if got := Clip("ab", 10); got != "ab" {
		t.Errorf("Clip shortened text within the limit")
	}
	// ż is two bytes, clipping at one must not split it.
	if got := Clip("ża", 1); got != "" {
		t.Errorf("Clip split a rune: %q", got)
	}
}
