// Package eml extracts headers and body text from RFC 822 email files.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/extractors/html"
)

// maxDepth bounds nested multipart parsing.
const maxDepth = 8

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles email messages.
type Extractor struct {
	html *html.Extractor
}

// New creates a new email extractor.
func New() *Extractor {
	return &Extractor{html: html.New()}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract renders From, To, Date and Subject followed by the body.
// Plain text parts win over HTML parts; attachments are ignored.
func (e *Extractor) Extract(ctx context.Context, blob []byte, _ string) (string, error) {
	if blob == nil {
		return "", domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(blob))
	if err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}

	body, err := e.body(ctx, msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, 0)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, h := range []string{"From", "To", "Date", "Subject"} {
		if v := decodeHeader(msg.Header.Get(h)); v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", h, v)
		}
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(strings.TrimSpace(body))
	return strings.TrimSpace(sb.String()), nil
}

func (e *Extractor) body(ctx context.Context, contentType, encoding string, r io.Reader, depth int) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if depth >= maxDepth || params["boundary"] == "" {
			return "", nil
		}
		return e.multipart(ctx, r, params["boundary"], depth+1)
	}

	data, err := io.ReadAll(decode(r, encoding))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if mediaType == "text/html" {
		return e.html.Extract(ctx, data, mediaType)
	}
	return string(data), nil
}

func (e *Extractor) multipart(ctx context.Context, r io.Reader, boundary string, depth int) (string, error) {
	mr := multipart.NewReader(r, boundary)
	var text, htmlText []string

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A truncated message keeps what was read so far.
			break
		}
		if part.FileName() != "" {
			part.Close()
			continue
		}

		ct := part.Header.Get("Content-Type")
		mediaType, _, perr := mime.ParseMediaType(ct)
		if perr != nil {
			mediaType = "text/plain"
		}
		if !strings.HasPrefix(mediaType, "text/") && !strings.HasPrefix(mediaType, "multipart/") {
			part.Close()
			continue
		}

		// multipart.Reader already decodes quoted-printable parts.
		s, berr := e.body(ctx, ct, part.Header.Get("Content-Transfer-Encoding"), part, depth)
		part.Close()
		if berr != nil || strings.TrimSpace(s) == "" {
			continue
		}
		if mediaType == "text/html" {
			htmlText = append(htmlText, s)
		} else {
			text = append(text, s)
		}
	}

	if len(text) > 0 {
		return strings.Join(text, "\n"), nil
	}
	return strings.Join(htmlText, "\n"), nil
}

func decode(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// decodeHeader decodes RFC 2047 encoded words.
func decodeHeader(v string) string {
	if v == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(v)
	if err != nil {
		return v
	}
	return out
}
