package prompt

import (
	"strings"
	"unicode/utf8"
)

// Token accounting uses a fixed chars/4 heuristic, not a real tokenizer. It
// can under- or over-estimate model tokenization by a wide margin, which is
// why truncation keeps a 20% safety margin below the budget.

const (
	charsPerToken   = 4
	truncateSafety  = 0.8
	cvCharCeiling   = 15000
	omissionMarkers = "\n\n[...CZĘŚĆ ŚRODKOWA POMINIĘTA...]\n\n"
)

var truncationNotices = map[string]string{
	"pl": "\n\n[UWAGA: CV zostało skrócone z powodu długości. Analiza oparta na pierwszej części dokumentu.]",
	"en": "\n\n[NOTE: The CV was shortened due to its length. The analysis covers the first part of the document.]",
}

// EstimateTokens approximates the token count of text (chars/4, rounded up).
func EstimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// TruncateToTokenLimit hard-truncates text to fit maxTokens, keeping the
// prefix and appending a human-readable notice in the operating language.
// Text already within budget is returned unchanged.
func TruncateToTokenLimit(text string, maxTokens int, language string) string {
	if EstimateTokens(text) <= maxTokens {
		return text
	}

	targetChars := int(float64(maxTokens) * charsPerToken * truncateSafety)
	if len(text) <= targetChars {
		// Estimate said over budget but the char count fits the safety
		// target; tolerate the estimator mismatch.
		return text
	}

	notice, ok := truncationNotices[language]
	if !ok {
		notice = truncationNotices[DefaultLanguage]
	}
	return cutAtRuneBoundary(text, targetChars) + notice
}

// Clip slices text to at most n bytes without splitting a rune.
func Clip(text string, n int) string {
	return cutAtRuneBoundary(text, n)
}

// cutAtRuneBoundary slices text to at most n bytes without splitting a rune.
func cutAtRuneBoundary(text string, n int) string {
	if n >= len(text) {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// CondenseCvText applies the CV-specific head+tail policy: text over the
// character ceiling keeps the first and last ceiling/2 characters verbatim
// with a single omission marker between them. Distinct from the token-budget
// truncation, which is prefix-only.
func CondenseCvText(cvText string) string {
	return condenseCvText(cvText, cvCharCeiling)
}

func condenseCvText(cvText string, ceiling int) string {
	if len(cvText) <= ceiling {
		return cvText
	}
	half := ceiling / 2
	tail := cvText[len(cvText)-half:]
	for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
		tail = tail[1:]
	}
	var b strings.Builder
	b.Grow(ceiling + len(omissionMarkers))
	b.WriteString(cutAtRuneBoundary(cvText, half))
	b.WriteString(omissionMarkers)
	b.WriteString(tail)
	return b.String()
}
