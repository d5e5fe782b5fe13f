package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// ExtractPPTX pulls the paragraph text out of every slide, slides joined by
// a blank line, and returns the slide count. Slides without any text-bearing
// shape are skipped from the text but still counted.
func ExtractPPTX(data []byte) (string, int, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pptx archive failed: %w", err)
	}

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range reader.File {
		m := slidePathRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: num, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var slideTexts []string
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", 0, fmt.Errorf("open slide %d failed: %w", s.num, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", 0, fmt.Errorf("read slide %d failed: %w", s.num, err)
		}
		text := parseSlideXML(content)
		if text != "" {
			slideTexts = append(slideTexts, text)
		}
	}

	return strings.Join(slideTexts, "\n\n"), len(slides), nil
}

// parseSlideXML collects the run text of each drawingml paragraph (a:p),
// keeping non-empty paragraphs joined by newline.
func parseSlideXML(content []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			}
		case xml.CharData:
			if inPara && inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					if text := strings.TrimSpace(current.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
				inPara = false
			}
		}
	}
	return strings.Join(paragraphs, "\n")
}
