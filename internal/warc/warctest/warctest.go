// Package warctest builds small synthetic WARC archives for tests.
package warctest

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// Entry is one WARC record to write.
type Entry struct {
	Type      string // defaults to "response"
	TargetURI string
	Block     []byte
}

// HTTPResponse wraps an HTML body in an HTTP/1.1 200 response.
func HTTPResponse(html string) []byte {
	return []byte(fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=utf-8\r\nContent-Length: %d\r\n\r\n%s", len(html), html))
}

// Page is a response entry whose body is a minimal HTML document.
func Page(uri string, paragraphs ...string) Entry {
	var b bytes.Buffer
	b.WriteString("<html><head><title>test page</title></head><body><article>")
	for _, p := range paragraphs {
		b.WriteString("<p>")
		b.WriteString(p)
		b.WriteString("</p>")
	}
	b.WriteString("</article></body></html>")
	return Entry{TargetURI: uri, Block: HTTPResponse(b.String())}
}

func (e Entry) encode() []byte {
	typ := e.Type
	if typ == "" {
		typ = "response"
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "WARC/1.0\r\n")
	fmt.Fprintf(&b, "WARC-Type: %s\r\n", typ)
	fmt.Fprintf(&b, "WARC-Date: 2023-01-01T00:00:00Z\r\n")
	fmt.Fprintf(&b, "WARC-Record-ID: <urn:uuid:%s>\r\n", uuid.New())
	if e.TargetURI != "" {
		fmt.Fprintf(&b, "WARC-Target-URI: %s\r\n", e.TargetURI)
		fmt.Fprintf(&b, "WARC-IP-Address: 192.0.2.1\r\n")
		fmt.Fprintf(&b, "WARC-Identified-Payload-Type: text/html\r\n")
	}
	fmt.Fprintf(&b, "WARC-Block-Digest: sha1:BLOCK\r\n")
	fmt.Fprintf(&b, "WARC-Payload-Digest: sha1:PAYLOAD\r\n")
	fmt.Fprintf(&b, "Content-Type: application/http; msgtype=response\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(e.Block))
	b.Write(e.Block)
	b.WriteString("\r\n\r\n")
	return b.Bytes()
}

// Archive renders entries as an uncompressed WARC stream.
func Archive(entries ...Entry) []byte {
	var b bytes.Buffer
	for _, e := range entries {
		b.Write(e.encode())
	}
	return b.Bytes()
}

// Gzip renders entries as a .warc.gz stream with one gzip member per record.
func Gzip(entries ...Entry) []byte {
	var b bytes.Buffer
	for _, e := range entries {
		zw := gzip.NewWriter(&b)
		_, _ = zw.Write(e.encode())
		_ = zw.Close()
	}
	return b.Bytes()
}
