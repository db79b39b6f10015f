package inbound

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

// ParseMessage reads a raw RFC 5322 message into a RawInbound.
// The body is the first text/plain part, or the first text/html part with the markup stripped.
// Unknown charsets are tolerated and leave the part undecoded. When the body cannot be
// decoded the raw text after the header block is kept instead; only a message without a
// readable header is an error.
func ParseMessage(raw []byte) (*core.RawInbound, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		h, herr := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
		if herr != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		msg := fromHeader(&mail.Header{Header: message.Header{Header: h}})
		msg.Body = rawBody(raw)
		return msg, nil
	}
	defer mr.Close()

	msg := fromHeader(&mr.Header)

	text, htmlBody, err := readBodies(mr)
	msg.Body = text
	if strings.TrimSpace(msg.Body) == "" && htmlBody != "" {
		msg.Body = HTMLToText(htmlBody)
	}
	if err != nil && strings.TrimSpace(msg.Body) == "" {
		msg.Body = rawBody(raw)
	}
	return msg, nil
}

func fromHeader(h *mail.Header) *core.RawInbound {
	msg := &core.RawInbound{
		From: headerSender(h),
		To:   headerRecipients(h),
	}
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = h.Get("Subject")
	}
	if date, err := h.Date(); err == nil {
		msg.ReceivedAt = date
	}
	return msg
}

// rawBody returns the undecoded text after the header block
func rawBody(raw []byte) string {
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return strings.TrimSpace(string(raw[crlf+4:]))
	case lf >= 0:
		return strings.TrimSpace(string(raw[lf+2:]))
	}
	return ""
}

// readBodies walks the parts and keeps the first plain and first html inline body.
// On a read error it returns what was collected so far along with the error.
func readBodies(mr *mail.Reader) (string, string, error) {
	var text, htmlBody string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && (p == nil || !message.IsUnknownCharset(err)) {
			return text, htmlBody, fmt.Errorf("failed to read message part: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := h.ContentType()
		if err != nil {
			contentType = "text/plain"
		}

		switch {
		case contentType == "text/plain" && text == "":
			body, err := io.ReadAll(p.Body)
			if err != nil {
				return text, htmlBody, fmt.Errorf("failed to read text part: %w", err)
			}
			text = strings.TrimSpace(string(body))
		case contentType == "text/html" && htmlBody == "":
			body, err := io.ReadAll(p.Body)
			if err != nil {
				return text, htmlBody, fmt.Errorf("failed to read html part: %w", err)
			}
			htmlBody = string(body)
		}
	}
	return text, htmlBody, nil
}

func headerSender(h *mail.Header) string {
	if addrs, err := h.AddressList("From"); err == nil && len(addrs) > 0 {
		return addrs[0].Address
	}
	return strings.TrimSpace(h.Get("From"))
}

func headerRecipients(h *mail.Header) []string {
	addrs, err := h.AddressList("To")
	if err != nil {
		return nil
	}
	to := make([]string, 0, len(addrs))
	for _, a := range addrs {
		to = append(to, a.Address)
	}
	return to
}

// HTMLToText drops tags, scripts and styles and collapses whitespace
func HTMLToText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}
