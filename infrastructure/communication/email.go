package communication

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Message struct {
	From        string
	To          []string
	Subject     string
	Text        string
	Attachments []Attachment
}

type EmailOption struct {
	From    string   `mapstructure:"from"`
	To      []string `mapstructure:"to"`
	Subject string   `mapstructure:"subject"`
	// ErrorsOnly suppresses Info messages.
	ErrorsOnly bool `mapstructure:"errors-only"`
}

func (o EmailOption) Enabled() bool {
	return o.From != "" && len(o.To) > 0
}

type rawSender interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// Email sends notifications through SES.
type Email struct {
	client  rawSender
	options EmailOption
	timeout time.Duration
}

func NewEmail(ctx context.Context, options EmailOption) (*Email, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Email{client: ses.NewFromConfig(cfg), options: options, timeout: 30 * time.Second}, nil
}

func (e *Email) Info(message string) error {
	if e.options.ErrorsOnly {
		return nil
	}
	return e.notify("info", message)
}

func (e *Email) Error(message string) error {
	return e.notify("error", message)
}

func (e *Email) notify(level, message string) error {
	subject := e.options.Subject
	if subject == "" {
		subject = "punchsync"
	}
	timeout := e.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return e.Send(ctx, &Message{
		From:    e.options.From,
		To:      e.options.To,
		Subject: fmt.Sprintf("%s: %s", subject, level),
		Text:    message,
	})
}

func (e *Email) Send(ctx context.Context, msg *Message) error {
	raw, err := BuildEmailBuffer(msg)
	if err != nil {
		return err
	}

	res, err := e.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage: &types.RawMessage{Data: raw.Bytes()},
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", strings.Join(msg.To, ", "), err)
	}
	if res != nil && res.MessageId != nil {
		log.Debugf("email %s sent", *res.MessageId)
	}
	return nil
}

// BuildEmailBuffer renders a multipart/mixed message with a quoted-printable
// text body and base64 attachments.
func BuildEmailBuffer(msg *Message) (*bytes.Buffer, error) {
	var emailRaw bytes.Buffer
	writer := multipart.NewWriter(&emailRaw)

	headers := fmt.Sprintf("From: %s\r\n", msg.From)
	if len(msg.To) > 0 {
		headers += fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", "))
	}
	headers += fmt.Sprintf("Subject: %s\r\n", msg.Subject)
	headers += "MIME-Version: 1.0\r\n"
	headers += fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", writer.Boundary())
	headers += "\r\n"
	emailRaw.WriteString(headers)

	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(msg.Text)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", fmt.Sprintf("%s; name=\"%s\"", att.ContentType, att.Filename))
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", att.Filename))
		h.Set("Content-Transfer-Encoding", "base64")

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, err
		}
		b := make([]byte, base64.StdEncoding.EncodedLen(len(att.Content)))
		base64.StdEncoding.Encode(b, att.Content)

		// wrap lines at 76 chars
		for i := 0; i < len(b); i += 76 {
			end := min(i+76, len(b))
			part.Write(b[i:end])
			part.Write([]byte("\r\n"))
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return &emailRaw, nil
}
