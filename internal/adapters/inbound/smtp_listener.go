package inbound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
	"github.com/proofofcorn/farmer-fred/internal/ports"
)

const defaultTriageTimeout = 30 * time.Second

// Options configures the SMTP listener
type Options struct {
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
	MaxRecipients   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	TriageTimeout   time.Duration
}

// SMTPListener accepts mail over SMTP and triages every message it receives
type SMTPListener struct {
	triager ports.Triager
	logger  *zap.Logger
	opts    Options
	server  *smtp.Server
	addr    net.Addr
	now     func() time.Time
}

// NewSMTPListener creates a new SMTP listener
func NewSMTPListener(triager ports.Triager, logger *zap.Logger, opts Options) *SMTPListener {
	if opts.TriageTimeout <= 0 {
		opts.TriageTimeout = defaultTriageTimeout
	}
	return &SMTPListener{
		triager: triager,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// Start starts the SMTP server in the background
func (l *SMTPListener) Start() error {
	l.server = smtp.NewServer(&smtpBackend{listener: l})

	l.server.Addr = l.opts.ListenAddress
	l.server.Domain = l.opts.Domain
	l.server.ReadTimeout = l.opts.ReadTimeout
	l.server.WriteTimeout = l.opts.WriteTimeout
	l.server.MaxMessageBytes = l.opts.MaxMessageBytes
	l.server.MaxRecipients = l.opts.MaxRecipients

	ln, err := net.Listen("tcp", l.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.opts.ListenAddress, err)
	}
	l.addr = ln.Addr()
	l.logger.Info("Inbound SMTP listener started",
		zap.String("address", ln.Addr().String()),
		zap.String("domain", l.opts.Domain))

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			l.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (l *SMTPListener) Addr() net.Addr {
	return l.addr
}

// Stop stops the SMTP server
func (l *SMTPListener) Stop() error {
	if l.server != nil {
		return l.server.Close()
	}
	return nil
}

// ProcessMessage parses raw MIME and runs it through triage
func (l *SMTPListener) ProcessMessage(ctx context.Context, sender string, raw []byte) (*core.InboundMessage, error) {
	msg, err := ParseMessage(raw)
	if err != nil {
		// Unreadable headers still get triaged, from the envelope alone.
		l.logger.Warn("Failed to parse message headers",
			zap.String("sender", core.RedactEmail(sender)),
			zap.Error(err))
		msg = &core.RawInbound{Body: string(raw)}
	}
	if sender != "" {
		msg.From = sender
	}
	// The Date header is sender controlled; the store keeps arrival time.
	msg.ReceivedAt = l.now()

	return l.triager.HandleInbound(ctx, msg)
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	listener *SMTPListener
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{listener: b.listener}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	listener   *SMTPListener
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the envelope sender
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message and triages it
func (s *smtpSession) Data(r io.Reader) error {
	logger := s.listener.logger

	raw, err := io.ReadAll(r)
	if err != nil {
		logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.listener.opts.TriageTimeout)
	defer cancel()

	msg, err := s.listener.ProcessMessage(ctx, s.sender, raw)
	if err != nil {
		logger.Error("Failed to triage message",
			zap.String("sender", core.RedactEmail(s.sender)),
			zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary failure, try again later",
		}
	}

	logger.Info("Processed email",
		zap.String("id", msg.ID),
		zap.String("sender", core.RedactEmail(msg.From)),
		zap.Int("recipients", len(s.recipients)),
		zap.String("category", string(msg.Category)),
		zap.Bool("safe", msg.SecurityCheck != nil && msg.SecurityCheck.IsSafe))
	return nil
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	return nil
}
