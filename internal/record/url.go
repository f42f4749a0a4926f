package record

import (
	"fmt"
	"regexp"
	"strings"
)

// SourceURL is a parsed crawl-data path of one WARC segment file.
type SourceURL struct {
	Snapshot string
	Segment  string
	FileNum  string
	// Raw is the path starting at "crawl-data/", without scheme or host.
	Raw string
}

var crawlPathRe = regexp.MustCompile(
	`(?:^|/)(crawl-data/CC-MAIN-([^/]+)/segments/([^/]+)/warc/CC-MAIN-\d+-\d+-(\d+)\.warc\.gz)$`,
)

// ParseURL extracts snapshot, segment and file ordinal from a crawl path.
// Leading scheme and host (https://data.commoncrawl.org/, s3://commoncrawl/) are allowed.
func ParseURL(s string) (SourceURL, error) {
	in := strings.TrimSpace(s)
	if i := strings.IndexAny(in, "?#"); i >= 0 {
		in = in[:i]
	}
	m := crawlPathRe.FindStringSubmatch(in)
	if m == nil {
		return SourceURL{}, fmt.Errorf("%w: %q", ErrMalformedURL, s)
	}
	return SourceURL{Raw: m[1], Snapshot: m[2], Segment: m[3], FileNum: m[4]}, nil
}

// ID is the record id derived from the url: snapshot/segment/file_num.
func (u SourceURL) ID() string {
	return u.Snapshot + "/" + u.Segment + "/" + u.FileNum
}
