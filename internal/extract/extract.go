// Package extract turns uploaded document bytes into sanitized plain text
// plus a page/slide count.
package extract

import (
	"fmt"
	"log"
	"strings"
)

// Result holds extracted text and the number of structural units (pages for
// PDF, slides for PPTX) the document contains.
type Result struct {
	Text      string
	UnitCount int
}

// Extract dispatches on the declared file type. Any failure, including an
// unsupported type, yields an empty result rather than an error; callers
// treat blank text as a pipeline failure.
func Extract(data []byte, fileType string) Result {
	var (
		text  string
		units int
		err   error
	)
	switch fileType {
	case "pdf":
		text, units, err = ExtractPDF(data)
	case "pptx":
		text, units, err = ExtractPPTX(data)
	default:
		err = fmt.Errorf("unsupported file type %q", fileType)
	}
	if err != nil {
		log.Printf("extract %s failed: %v", fileType, err)
		return Result{}
	}
	return Result{Text: Sanitize(text), UnitCount: units}
}

// Sanitize keeps printable ASCII (32-126) plus tab, newline and carriage
// return. Everything else, control characters and higher-range runes alike,
// is dropped.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 32 && r <= 126) || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
