// Package extract turns uploaded CV files into validated plain text.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrExtractionFailed  = errors.New("text extraction failed")

	// ErrNotCv means the document does not look like a CV at all.
	ErrNotCv = errors.New("document does not appear to be a CV")
)

const minMeaningfulLength = 50

var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

// cvIndicators are section markers expected in a CV, Polish or English. A
// document matching fewer than two is rejected.
var cvIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(experience|doświadczenie|praca|zawodowe)\b`),
	regexp.MustCompile(`(?i)\b(education|wykształcenie|edukacja|studia)\b`),
	regexp.MustCompile(`(?i)\b(skills|umiejętności|kompetencje)\b`),
	regexp.MustCompile(`(?i)\b(phone|telefon|email|mail)\b`),
	regexp.MustCompile(`(?i)\b(name|nazwisko|imię)\b`),
}

var (
	// Control characters other than tab/newline; accented letters stay.
	nonPrintable = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
	multiSpace   = regexp.MustCompile(`[^\S\n]+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// Text extracts plain text from an uploaded file. The PDF path strips binary
// noise from the raw stream rather than parsing the format properly, which
// fails on image-based documents; that limitation is surfaced as
// ErrExtractionFailed.
func Text(fileBytes []byte, mimeType string) (string, error) {
	if !allowedMimeTypes[mimeType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	raw := string(fileBytes)
	if mimeType == "application/pdf" {
		raw = nonPrintable.ReplaceAllString(raw, " ")
	}
	text := Clean(raw)

	if len(text) < minMeaningfulLength {
		return "", fmt.Errorf("%w: no meaningful text in document", ErrExtractionFailed)
	}
	return text, nil
}

// Clean normalizes line endings and collapses extraction whitespace noise.
func Clean(text string) string {
	text = strings.ToValidUTF8(text, " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ValidateCv rejects text that is too short or lacks CV section markers.
func ValidateCv(text string) error {
	if len(strings.TrimSpace(text)) < minMeaningfulLength {
		return fmt.Errorf("%w: content too short", ErrNotCv)
	}
	found := 0
	for _, indicator := range cvIndicators {
		if indicator.MatchString(text) {
			found++
		}
	}
	if found < 2 {
		return ErrNotCv
	}
	return nil
}

// ProcessCvFile is the full upload path: extract, clean, validate.
func ProcessCvFile(fileBytes []byte, mimeType string) (string, error) {
	text, err := Text(fileBytes, mimeType)
	if err != nil {
		return "", err
	}
	if err := ValidateCv(text); err != nil {
		return "", err
	}
	return text, nil
}
