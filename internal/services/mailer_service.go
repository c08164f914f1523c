package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
)

// Message is one outbound email. The attachment, when present, is the
// generated application PDF.
type Message struct {
	To         []string
	Subject    string
	HTML       string
	Attachment *Attachment
}

// Attachment is an inline file on a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mailer dispatches confirmation and operations emails. Delivery failures
// are non-fatal to submission; callers log and move on.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

type smtpMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPMailer creates a mailer speaking plain SMTP with AUTH when a
// username is configured.
func NewSMTPMailer(host, port, username, password, from string) Mailer {
	return &smtpMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *smtpMailer) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	body, err := buildMIME(m.from, msg)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, msg.To, body); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", addr, err)
	}
	return nil
}

// buildMIME assembles a multipart/mixed message with an HTML part and an
// optional base64 attachment.
func buildMIME(from string, msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	htmlHeader := textproto.MIMEHeader{}
	htmlHeader.Set("Content-Type", "text/html; charset=utf-8")
	htmlPart, err := writer.CreatePart(htmlHeader)
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(msg.HTML)); err != nil {
		return nil, err
	}

	if msg.Attachment != nil {
		attHeader := textproto.MIMEHeader{}
		attHeader.Set("Content-Type", msg.Attachment.ContentType)
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", msg.Attachment.Filename))
		attPart, err := writer.CreatePart(attHeader)
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(msg.Attachment.Data)
		// 76-char lines per RFC 2045
		for len(encoded) > 76 {
			if _, err := attPart.Write([]byte(encoded[:76] + "\r\n")); err != nil {
				return nil, err
			}
			encoded = encoded[76:]
		}
		if _, err := attPart.Write([]byte(encoded + "\r\n")); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type logMailer struct{}

// NewLogMailer returns a mailer that only logs, for development environments
// without an SMTP relay.
func NewLogMailer() Mailer {
	return &logMailer{}
}

func (m *logMailer) Send(ctx context.Context, msg *Message) error {
	attachment := "none"
	if msg.Attachment != nil {
		attachment = fmt.Sprintf("%s (%d bytes)", msg.Attachment.Filename, len(msg.Attachment.Data))
	}
	log.Printf("[EMAIL] To=%s, Subject=%s, Attachment=%s", strings.Join(msg.To, ","), msg.Subject, attachment)
	return nil
}
