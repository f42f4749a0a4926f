// Package extract turns a raw captured HTTP response into plain text.
package extract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
)

// Extractor returns the main text of a captured response. An empty string
// with a nil error means the capture holds no usable text.
type Extractor interface {
	Extract(ctx context.Context, raw []byte, targetURI string) (string, error)
}

// Func adapts a function to Extractor.
type Func func(ctx context.Context, raw []byte, targetURI string) (string, error)

func (f Func) Extract(ctx context.Context, raw []byte, targetURI string) (string, error) {
	return f(ctx, raw, targetURI)
}

// blockSel are the elements after which a line break is kept.
const blockSel = "p, h1, h2, h3, h4, h5, h6, li, pre, blockquote, tr, dt, dd, div, section, br"

var fallbackURL = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}

// Readability extracts article text with go-readability, favouring
// precision: comments and tables are dropped with the boilerplate.
type Readability struct {
	// MaxBody caps the bytes read from a response body; <=0 means unlimited.
	MaxBody int64
}

func (r Readability) Extract(ctx context.Context, raw []byte, targetURI string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return "", fmt.Errorf("parse http response: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var body io.Reader = resp.Body
	if r.MaxBody > 0 {
		body = io.LimitReader(body, r.MaxBody)
	}
	br := bufio.NewReader(body)
	ct := resp.Header.Get("Content-Type")
	if !isHTML(ct, br) {
		return "", nil
	}

	utf8Reader, err := charset.NewReader(br, ct)
	if err != nil {
		utf8Reader = br
	}

	pageURL, err := url.Parse(targetURI)
	if err != nil || pageURL.Host == "" {
		pageURL = fallbackURL
	}
	article, err := readability.FromReader(utf8Reader, pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	if strings.TrimSpace(article.Content) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", fmt.Errorf("parse article: %w", err)
	}
	doc.Find("table, aside, nav, footer, script, style").Remove()
	doc.Find(blockSel).AppendHtml("\n")
	return Clean(doc.Text()), nil
}

// isHTML trusts the declared media type and sniffs when none is given.
func isHTML(ct string, br *bufio.Reader) bool {
	if ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err == nil {
			return mt == "text/html" || mt == "application/xhtml+xml"
		}
	}
	head, _ := br.Peek(512)
	return strings.HasPrefix(http.DetectContentType(head), "text/html")
}

// Clean collapses whitespace inside lines and drops empty lines.
func Clean(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
