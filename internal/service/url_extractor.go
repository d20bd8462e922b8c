package service

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

// Submission document kinds.
const (
	DocTypeAuto = "auto"
	DocTypeHTML = "html"
	DocTypePDF  = "pdf"
)

var (
	refreshURLPattern = regexp.MustCompile(`(?i)url=([^"]+)`)
	githubURLPattern  = regexp.MustCompile(`https?://(?:www\.)?github\.com/[^\s"'<>()\[\]]+`)
)

// ValidDocType reports whether docType names a supported submission kind.
func ValidDocType(docType string) bool {
	switch docType {
	case DocTypeAuto, DocTypeHTML, DocTypePDF:
		return true
	}
	return false
}

// ExtractionError reports that a submission file could not be read as its document kind.
type ExtractionError struct {
	DocType string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction: %v", e.DocType, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Marker renders the report field for the failed extraction.
func (e *ExtractionError) Marker() string {
	if e.DocType == DocTypePDF {
		return models.MarkerPDFExtraction
	}
	return models.MarkerHTMLExtraction
}

// URLExtractor pulls the candidate repository URL out of a submitted file.
type URLExtractor struct {
	logger *zap.Logger
}

// NewURLExtractor constructs a URLExtractor.
func NewURLExtractor(logger *zap.Logger) *URLExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &URLExtractor{logger: logger}
}

// Extract returns the candidate URL in path, or "" when the file carries none.
// Failures are returned as *ExtractionError.
func (e *URLExtractor) Extract(path, docType string) (string, error) {
	kind, err := e.resolveKind(path, docType)
	if err != nil {
		return "", &ExtractionError{DocType: DocTypeHTML, Err: err}
	}

	var url string
	switch kind {
	case DocTypePDF:
		url, err = e.extractPDF(path)
	default:
		url, err = e.extractHTMLFile(path)
	}
	if err != nil {
		e.logger.Sugar().Warnw("submission extraction failed", "path", path, "doc_type", kind, "error", err)
		return "", &ExtractionError{DocType: kind, Err: err}
	}
	return url, nil
}

func (e *URLExtractor) resolveKind(path, docType string) (string, error) {
	switch strings.ToLower(docType) {
	case DocTypeHTML:
		return DocTypeHTML, nil
	case DocTypePDF:
		return DocTypePDF, nil
	case "", DocTypeAuto:
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported document type %q", docType))
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if mtype.Is("application/pdf") {
		return DocTypePDF, nil
	}
	return DocTypeHTML, nil
}

func (e *URLExtractor) extractHTMLFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ExtractHTMLURL(f)
}

// ExtractHTMLURL prefers a meta refresh target and falls back to the first anchor, which only
// counts when it points at github.com.
func ExtractHTMLURL(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var refresh *html.Node
	var anchor *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if refresh == nil && strings.EqualFold(attr(n, "http-equiv"), "refresh") {
					refresh = n
				}
			case "a":
				if anchor == nil && hasAttr(n, "href") {
					anchor = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if refresh != nil {
		if m := refreshURLPattern.FindStringSubmatch(attr(refresh, "content")); m != nil {
			return strings.TrimSpace(m[1]), nil
		}
	}
	if anchor != nil {
		if href := attr(anchor, "href"); strings.Contains(href, "github.com") {
			return href, nil
		}
	}
	return "", nil
}

func (e *URLExtractor) extractPDF(path string) (url string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	text, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	body, err := io.ReadAll(text)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return ExtractTextURL(string(body)), nil
}

// ExtractTextURL returns the first github.com URL in free text.
func ExtractTextURL(text string) string {
	match := githubURLPattern.FindString(text)
	return strings.TrimRight(match, ".,;:")
}

// IsWellFormedURL reports whether url carries an http or https scheme prefix.
func IsWellFormedURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}
