package outbound

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

var _ core.MailTransport = (*SMTPTransport)(nil)

type capture struct {
	mu   sync.Mutex
	from string
	to   []string
	data []byte
}

type captureBackend struct{ c *capture }

func (b *captureBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &captureSession{c: b.c}, nil
}

type captureSession struct{ c *capture }

func (s *captureSession) Reset()        {}
func (s *captureSession) Logout() error { return nil }

func (s *captureSession) Mail(from string, _ *smtp.MailOptions) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.to = append(s.c.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.data = data
	return nil
}

func startRelay(t *testing.T) (string, int, *capture) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	c := &capture{}
	server := smtp.NewServer(&captureBackend{c: c})
	server.Domain = "localhost"
	go func() { _ = server.Serve(l) }()
	t.Cleanup(func() { _ = server.Close() })

	host, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port, c
}

func TestSendDeliversMessage(t *testing.T) {
	host, port, captured := startRelay(t)
	transport := NewSMTPTransport(host, port, "", "", "fred@proofofcorn.com", "Farmer Fred", false, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := transport.Send(ctx, &core.OutboundMail{
		To:      []string{"ops@proofofcorn.com"},
		Subject: "[Fred Alert] New lead",
		Body:    "A lead arrived from d***@farm.example",
	})
	require.NoError(t, err)

	captured.mu.Lock()
	defer captured.mu.Unlock()
	assert.Equal(t, "fred@proofofcorn.com", captured.from)
	assert.Equal(t, []string{"ops@proofofcorn.com"}, captured.to)

	mr, err := mail.CreateReader(bytes.NewReader(captured.data))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "[Fred Alert] New lead", subject)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "Farmer Fred", from[0].Name)

	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Equal(t, "A lead arrived from d***@farm.example", string(body))
}

func TestSendRequiresRecipients(t *testing.T) {
	transport := NewSMTPTransport("127.0.0.1", 25, "", "", "fred@proofofcorn.com", "Farmer Fred", false, zap.NewNop())
	err := transport.Send(context.Background(), &core.OutboundMail{Subject: "x"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestSendConnectionFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	require.NoError(t, l.Close())

	transport := NewSMTPTransport("127.0.0.1", addr.Port, "", "", "fred@proofofcorn.com", "Farmer Fred", false, zap.NewNop())
	err = transport.Send(context.Background(), &core.OutboundMail{To: []string{"ops@proofofcorn.com"}})
	assert.ErrorContains(t, err, "failed to connect")
}

func TestBuildMessageUsesOverrides(t *testing.T) {
	date := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	data, err := buildMessage("Fred", "outreach@proofofcorn.com", &core.OutboundMail{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Hello",
		Body:    "Body",
	}, date)
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(data))
	require.NoError(t, err)
	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	assert.Len(t, to, 2)

	got, err := mr.Header.Date()
	require.NoError(t, err)
	assert.True(t, got.Equal(date))
	assert.NotEmpty(t, mr.Header.Get("Message-Id"))
}
