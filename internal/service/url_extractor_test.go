package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
)

func TestExtractHTMLURL(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "meta refresh wins over anchors",
			doc:  `<html><head><meta http-equiv="Refresh" content="0; url=https://github.com/stu/hw1"></head><body><a href="https://github.com/other/repo">x</a></body></html>`,
			want: "https://github.com/stu/hw1",
		},
		{
			name: "meta refresh is case insensitive",
			doc:  `<meta HTTP-EQUIV="refresh" content="0;URL=https://github.com/stu/hw2">`,
			want: "https://github.com/stu/hw2",
		},
		{
			name: "first anchor pointing at github",
			doc:  `<body><a href="https://github.com/stu/hw3">repo</a><a href="https://example.com">other</a></body>`,
			want: "https://github.com/stu/hw3",
		},
		{
			name: "only the first anchor is considered",
			doc:  `<body><a href="https://canvas.example.edu">home</a><a href="https://github.com/stu/hw4">repo</a></body>`,
			want: "",
		},
		{
			name: "anchors without href are skipped",
			doc:  `<body><a name="top">top</a><a href="github.com/stu/hw5">repo</a></body>`,
			want: "github.com/stu/hw5",
		},
		{
			name: "no url",
			doc:  `<p>I forgot to paste the link</p>`,
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractHTMLURL(strings.NewReader(tc.doc))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractTextURL(t *testing.T) {
	assert.Equal(t, "https://github.com/stu/hw1", ExtractTextURL("Repo: https://github.com/stu/hw1.\nThanks"))
	assert.Equal(t, "", ExtractTextURL("no link here http://example.com"))
}

func TestIsWellFormedURL(t *testing.T) {
	assert.True(t, IsWellFormedURL("https://github.com/a/b"))
	assert.True(t, IsWellFormedURL("http://github.com/a/b"))
	assert.False(t, IsWellFormedURL("github.com/a/b"))
	assert.False(t, IsWellFormedURL(""))
}

func TestURLExtractorExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stu_123_hw.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body><a href="https://github.com/stu/hw">r</a></body></html>`), 0o644))

	extractor := NewURLExtractor(nil)
	for _, docType := range []string{DocTypeAuto, DocTypeHTML} {
		url, err := extractor.Extract(path, docType)
		require.NoError(t, err)
		assert.Equal(t, "https://github.com/stu/hw", url)
	}
}

func TestURLExtractorPDFFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stu_1.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\nnot really a pdf"), 0o644))

	_, err := NewURLExtractor(nil).Extract(path, DocTypeAuto)
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, DocTypePDF, extractionErr.DocType)
	assert.Equal(t, models.MarkerPDFExtraction, extractionErr.Marker())
}

func TestURLExtractorMissingFile(t *testing.T) {
	_, err := NewURLExtractor(nil).Extract(filepath.Join(t.TempDir(), "missing.html"), DocTypeHTML)
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, models.MarkerHTMLExtraction, extractionErr.Marker())
}
