package outbound

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

const dialTimeout = 10 * time.Second

// ErrNoRecipients is returned when a message has nobody to go to
var ErrNoRecipients = errors.New("no recipients")

// SMTPTransport delivers outbound mail through an SMTP relay
type SMTPTransport struct {
	addr      string
	host      string
	username  string
	password  string
	from      string
	fromName  string
	startTLS  bool
	tlsConfig *tls.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewSMTPTransport creates a new SMTP transport
func NewSMTPTransport(
	host string,
	port int,
	username string,
	password string,
	from string,
	fromName string,
	startTLS bool,
	logger *zap.Logger,
) *SMTPTransport {
	return &SMTPTransport{
		addr:      net.JoinHostPort(host, fmt.Sprint(port)),
		host:      host,
		username:  username,
		password:  password,
		from:      from,
		fromName:  fromName,
		startTLS:  startTLS,
		tlsConfig: &tls.Config{ServerName: host},
		logger:    logger,
		now:       time.Now,
	}
}

// Send delivers a message to every recipient
func (t *SMTPTransport) Send(ctx context.Context, m *core.OutboundMail) error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}

	from := m.From
	if from == "" {
		from = t.from
	}
	fromName := m.FromName
	if fromName == "" {
		fromName = t.fromName
	}

	data, err := buildMessage(fromName, from, m, t.now())
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP relay: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set connection deadline: %w", err)
		}
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if t.startTLS {
		if err := c.StartTLS(t.tlsConfig); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if t.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.username, t.password)); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, rcpt := range m.To {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("RCPT TO failed for %s: %w", core.RedactEmail(rcpt), err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		t.logger.Warn("QUIT command failed", zap.Error(err))
	}

	t.logger.Debug("Sent email",
		zap.Int("recipients", len(m.To)),
		zap.String("subject", m.Subject))
	return nil
}

// buildMessage renders a single-part plain text message
func buildMessage(fromName, from string, m *core.OutboundMail, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: fromName, Address: from}})

	to := make([]*mail.Address, 0, len(m.To))
	for _, addr := range m.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)
	h.SetSubject(m.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, m.Body); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}
