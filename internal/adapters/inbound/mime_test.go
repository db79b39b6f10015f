package inbound

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseMessagePlain(t *testing.T) {
	raw := crlf(`From: "Dana Grower" <dana@farmco.example>
To: fred@proofofcorn.com
Subject: Land lease in Iowa
Date: Tue, 10 Mar 2026 09:30:00 +0000
Content-Type: text/plain; charset=utf-8

We have 40 acres available near Ames.
`)

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "dana@farmco.example", msg.From)
	assert.Equal(t, []string{"fred@proofofcorn.com"}, msg.To)
	assert.Equal(t, "Land lease in Iowa", msg.Subject)
	assert.Equal(t, "We have 40 acres available near Ames.", msg.Body)
	assert.True(t, msg.ReceivedAt.Equal(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)))
}

func TestParseMessageMultipartPrefersPlain(t *testing.T) {
	raw := crlf(`From: seeds@vendor.example
To: fred@proofofcorn.com
Subject: Seed pricing
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="XYZ"

--XYZ
Content-Type: text/html; charset=utf-8

<p>HTML version</p>
--XYZ
Content-Type: text/plain; charset=utf-8

Plain version
--XYZ--
`)

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "Plain version", msg.Body)
}

func TestParseMessageHTMLFallback(t *testing.T) {
	raw := crlf(`From: news@coop.example
Subject: =?utf-8?q?Co-op_news?=
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="B1"

--B1
Content-Type: text/html; charset=utf-8

<html><head><style>p{color:red}</style></head><body><p>Corn &amp; soy</p><script>x()</script><p>prices</p></body></html>
--B1--
`)

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "Co-op news", msg.Subject)
	assert.Equal(t, "Corn & soy prices", msg.Body)
	assert.Empty(t, msg.To)
	assert.True(t, msg.ReceivedAt.IsZero())
}

func TestParseMessageUnknownCharset(t *testing.T) {
	raw := crlf(`From: someone@example.com
Subject: hello
Content-Type: text/plain; charset=x-made-up

body text
`)

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "someone@example.com", msg.From)
	assert.Contains(t, msg.Body, "body text")
}

func TestParseMessageUndecodableBodyKeepsHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers string
		body    string
	}{
		{
			name:    "multipart without boundary lines",
			headers: "Content-Type: multipart/mixed; boundary=\"XYZ\"\n",
			body:    "Just some text with no parts.",
		},
		{
			name:    "multipart without boundary parameter",
			headers: "Content-Type: multipart/alternative\n",
			body:    "Plain words here.",
		},
		{
			name:    "invalid base64",
			headers: "Content-Type: text/plain; charset=utf-8\nContent-Transfer-Encoding: base64\n",
			body:    "!!!not-base64!!!",
		},
		{
			name:    "unknown transfer encoding",
			headers: "Content-Type: text/plain\nContent-Transfer-Encoding: x-farm\n",
			body:    "Corn yields look good.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := crlf("From: Dana <dana@farm.example>\n" +
				"To: fred@proofofcorn.com\n" +
				"Subject: Broken message\n" +
				tt.headers +
				"\n" +
				tt.body + "\n")

			msg, err := ParseMessage(raw)
			require.NoError(t, err)
			assert.Equal(t, "dana@farm.example", msg.From)
			assert.Equal(t, "Broken message", msg.Subject)
			assert.Equal(t, tt.body, msg.Body)
		})
	}
}

func TestParseMessageWithoutHeaders(t *testing.T) {
	_, err := ParseMessage(crlf("this is not an email\n\nbody\n"))
	assert.Error(t, err)
}

func TestRawBody(t *testing.T) {
	assert.Equal(t, "body", rawBody([]byte("Subject: x\r\n\r\nbody\r\n")))
	assert.Equal(t, "body", rawBody([]byte("Subject: x\n\nbody\n")))
	assert.Equal(t, "", rawBody([]byte("Subject: x\r\n")))
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "", HTMLToText(""))
	assert.Equal(t, "a b", HTMLToText("<div>a</div><div>b</div>"))
	assert.Equal(t, "keep", HTMLToText("<style>.x{}</style>keep<script>drop()</script>"))
}
