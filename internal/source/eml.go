package source

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"alert-digest/internal/digest"
)

// ErrNoTextBody is returned when a message carries neither a text/plain
// nor a text/html part.
var ErrNoTextBody = errors.New("source: message has no text body")

var (
	htmlBreaks = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</tr>`)
	htmlTags   = regexp.MustCompile(`(?s)<[^>]*>`)
)

// EML reads one RFC 5322 message per file.
type EML struct{}

// Read parses the message stored at path.
func (EML) Read(path string) ([]digest.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rec, err := ParseEML(file)
	if err != nil {
		return nil, err
	}
	return []digest.Record{rec}, nil
}

// ParseEML decodes headers and the readable body of a message.
func ParseEML(r io.Reader) (digest.Record, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return digest.Record{}, fmt.Errorf("read message: %w", err)
	}

	decoder := &mime.WordDecoder{CharsetReader: charsetReader}
	header := func(key string) string {
		raw := msg.Header.Get(key)
		decoded, err := decoder.DecodeHeader(raw)
		if err != nil {
			return raw
		}
		return decoded
	}

	receivedAt, err := receivedTime(msg.Header)
	if err != nil {
		return digest.Record{}, err
	}

	plain, htmlBody, err := readBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return digest.Record{}, err
	}
	body := plain
	if body == "" {
		if htmlBody == "" {
			return digest.Record{}, ErrNoTextBody
		}
		body = htmlToText(htmlBody)
	}

	return digest.Record{
		Subject:    header("Subject"),
		Sender:     senderAddress(header("From")),
		Recipient:  header("To"),
		ReceivedAt: receivedAt,
		Body:       body,
	}, nil
}

// receivedTime prefers the timestamp of the topmost Received header, which
// is stamped by the receiving server, and falls back to Date.
func receivedTime(h mail.Header) (time.Time, error) {
	if received := h["Received"]; len(received) > 0 {
		if i := strings.LastIndex(received[0], ";"); i >= 0 {
			if t, err := mail.ParseDate(strings.TrimSpace(received[0][i+1:])); err == nil {
				return t, nil
			}
		}
	}
	t, err := h.Date()
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date header: %w", err)
	}
	return t, nil
}

func senderAddress(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return strings.TrimSpace(from)
	}
	return addr.Address
}

// readBody walks the MIME tree and returns the first text/plain and
// text/html contents it finds.
func readBody(contentType, encoding string, r io.Reader) (string, string, error) {
	mediaType := "text/plain"
	params := map[string]string{}
	if contentType != "" {
		mt, p, err := mime.ParseMediaType(contentType)
		if err != nil {
			return "", "", fmt.Errorf("parse content type: %w", err)
		}
		mediaType, params = mt, p
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return readMultipart(params["boundary"], r)
	}
	if mediaType != "text/plain" && mediaType != "text/html" {
		return "", "", nil
	}

	decoded, err := decodeTransfer(encoding, r)
	if err != nil {
		return "", "", err
	}
	if cs := params["charset"]; cs != "" {
		decoded, err = charsetReader(cs, decoded)
		if err != nil {
			return "", "", err
		}
	}
	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", "", fmt.Errorf("read body: %w", err)
	}

	if mediaType == "text/html" {
		return "", string(data), nil
	}
	return string(data), "", nil
}

func readMultipart(boundary string, r io.Reader) (string, string, error) {
	if boundary == "" {
		return "", "", errors.New("multipart message without boundary")
	}
	var plain, htmlBody string
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("read multipart: %w", err)
		}
		p, h, err := readBody(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			return "", "", err
		}
		if plain == "" {
			plain = p
		}
		if htmlBody == "" {
			htmlBody = h
		}
	}
	return plain, htmlBody, nil
}

func decodeTransfer(encoding string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "7bit", "8bit", "binary":
		return r, nil
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r), nil
	case "quoted-printable":
		return quotedprintable.NewReader(r), nil
	default:
		return nil, fmt.Errorf("unsupported transfer encoding %q", encoding)
	}
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8", "us-ascii":
		return input, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

func htmlToText(s string) string {
	s = htmlBreaks.ReplaceAllString(s, "\n")
	s = htmlTags.ReplaceAllString(s, "")
	return html.UnescapeString(s)
}

var _ Reader = EML{}
