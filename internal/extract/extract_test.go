package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestPPTX builds a minimal valid PPTX archive in memory with one
// slide XML per entry of slides, keyed by slide number.
func createTestPPTX(slides map[int]string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	for num, body := range slides {
		f, _ := w.Create(slidePath(num))
		f.Write([]byte(body))
	}

	w.Close()
	return buf.Bytes()
}

func slidePath(num int) string {
	return "ppt/slides/slide" + string(rune('0'+num)) + ".xml"
}

func slideXML(paragraphs ...string) string {
	body := ""
	for _, p := range paragraphs {
		body += `<a:p><a:r><a:t>` + p + `</a:t></a:r></a:p>`
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree><p:sp><p:txBody>` + body + `</p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain ascii kept", "Hello, World! 123", "Hello, World! 123"},
		{"whitespace kept", "a\tb\nc\rd", "a\tb\nc\rd"},
		{"control chars dropped", "a\x00b\x1fc\x7fd", "abcd"},
		{"non-ascii dropped", "café 中文 ok", "caf  ok"},
		{"boundary runes", " ~", " ~"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestExtractPPTX_SlideOrderAndCount(t *testing.T) {
	data := createTestPPTX(map[int]string{
		2: slideXML("Second slide"),
		1: slideXML("First slide", "More text"),
		3: slideXML(),
	})

	text, slides, err := ExtractPPTX(data)
	require.NoError(t, err)

	// Empty slide 3 still counts but contributes no text.
	assert.Equal(t, 3, slides)
	assert.Equal(t, "First slide\nMore text\n\nSecond slide", text)
}

func TestExtractPPTX_NotAnArchive(t *testing.T) {
	_, _, err := ExtractPPTX([]byte("not a zip"))
	assert.Error(t, err)
}

func TestExtract_UnsupportedType(t *testing.T) {
	result := Extract([]byte("anything"), "docx")
	assert.Equal(t, Result{}, result)
}

func TestExtract_BrokenPDF(t *testing.T) {
	result := Extract([]byte("%PDF-garbage"), "pdf")
	assert.Empty(t, result.Text)
	assert.Zero(t, result.UnitCount)
}

func TestExtract_PPTXIsSanitized(t *testing.T) {
	data := createTestPPTX(map[int]string{
		1: slideXML("café culture"),
	})

	result := Extract(data, "pptx")
	assert.Equal(t, "caf culture", result.Text)
	assert.Equal(t, 1, result.UnitCount)
}
