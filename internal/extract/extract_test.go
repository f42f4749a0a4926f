package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/yourorg/cc-corpus/internal/warc/warctest"
)

var paragraphs = []string{
	"The committee met on Tuesday to discuss the future of the river restoration project and the funding that it will need over the next decade.",
	"Members agreed that the first phase should focus on the removal of the old weirs, which have blocked the passage of fish for more than a century.",
	"A second phase will replant the banks with native trees, giving shade to the water and a home to the birds that have slowly returned to the valley.",
	"Local schools have been invited to take part in monitoring the water quality, and the results will be published every month on the council website.",
	"The chair closed the meeting by thanking the volunteers who have already spent hundreds of hours clearing rubbish from the banks of the river.",
}

func TestReadabilityExtractsArticle(t *testing.T) {
	raw := warctest.Page("http://news.example/river", paragraphs...).Block
	text, err := Readability{}.Extract(context.Background(), raw, "http://news.example/river")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "removal of the old weirs") {
		t.Fatalf("article text missing from %q", text)
	}
	if strings.Contains(text, "<p>") {
		t.Fatalf("markup leaked into %q", text)
	}
	if strings.Contains(text, "  ") {
		t.Fatalf("whitespace not collapsed in %q", text)
	}
}

func TestReadabilitySkipsNonHTML(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Type: image/png\r\nContent-Length: 4\r\n\r\n\x89PNG")
	text, err := Readability{}.Extract(context.Background(), raw, "http://x.example/a.png")
	if err != nil || text != "" {
		t.Fatalf("text=%q err=%v; want empty, nil", text, err)
	}
}

func TestReadabilitySkipsErrors(t *testing.T) {
	raw := []byte("HTTP/1.1 404 Not Found\r\nContent-Type: text/html\r\nContent-Length: 9\r\n\r\nnot found")
	text, err := Readability{}.Extract(context.Background(), raw, "http://x.example/")
	if err != nil || text != "" {
		t.Fatalf("text=%q err=%v", text, err)
	}
}

func TestReadabilityMalformedResponse(t *testing.T) {
	if _, err := (Readability{}).Extract(context.Background(), []byte("garbage"), ""); err == nil {
		t.Fatalf("expected error for non-HTTP bytes")
	}
}

func TestClean(t *testing.T) {
	in := "  a \t b \n\n   \n c  d  \n"
	if got := Clean(in); got != "a b\nc d" {
		t.Fatalf("Clean=%q", got)
	}
}
