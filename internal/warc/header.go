package warc

import (
	"fmt"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Header is the metadata of one captured HTTP response.
type Header struct {
	RecordID              uuid.UUID `json:"warc_record_id"`
	Timestamp             string    `json:"iso_timestamp"`
	BlockDigest           string    `json:"block_digest"`
	PayloadDigest         string    `json:"payload_digest"`
	IPAddress             string    `json:"ip_address"`
	TargetURI             string    `json:"target_uri"`
	ContentType           string    `json:"content_type"`
	ContentLength         int64     `json:"content_length"`
	IdentifiedPayloadType string    `json:"identified_payload_type"`
	Type                  string    `json:"warc_type"`
}

// Well-known WARC header names.
const (
	HdrType                  = "WARC-Type"
	HdrRecordID              = "WARC-Record-ID"
	HdrDate                  = "WARC-Date"
	HdrBlockDigest           = "WARC-Block-Digest"
	HdrPayloadDigest         = "WARC-Payload-Digest"
	HdrIPAddress             = "WARC-IP-Address"
	HdrTargetURI             = "WARC-Target-URI"
	HdrIdentifiedPayloadType = "WARC-Identified-Payload-Type"
	HdrContentType           = "Content-Type"
	HdrContentLength         = "Content-Length"
)

// HeaderFromMap snapshots the fields of a parsed WARC header block.
func HeaderFromMap(m textproto.MIMEHeader) (Header, error) {
	raw := strings.Trim(m.Get(HdrRecordID), "<>")
	id, err := uuid.Parse(raw)
	if err != nil {
		return Header{}, fmt.Errorf("record id %q: %w", raw, err)
	}
	var n int64
	if v := m.Get(HdrContentLength); v != "" {
		n, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Header{}, fmt.Errorf("content length %q: %w", v, err)
		}
	}
	return Header{
		RecordID:              id,
		Timestamp:             m.Get(HdrDate),
		BlockDigest:           m.Get(HdrBlockDigest),
		PayloadDigest:         m.Get(HdrPayloadDigest),
		IPAddress:             m.Get(HdrIPAddress),
		TargetURI:             m.Get(HdrTargetURI),
		ContentType:           m.Get(HdrContentType),
		ContentLength:         n,
		IdentifiedPayloadType: m.Get(HdrIdentifiedPayloadType),
		Type:                  m.Get(HdrType),
	}, nil
}
