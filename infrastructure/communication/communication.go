// Package communication delivers push notifications to operators.
package communication

import (
	"errors"
	"fmt"
	"os"

	"github.com/op/go-logging"
	"github.com/slack-go/slack"
)

var log = logging.MustGetLogger("notify")

type Slack struct {
	client  *slack.Client
	options SlackOption
}

type SlackOption struct {
	Token          string `mapstructure:"token"`
	InfoChannelID  string `mapstructure:"info-channel"`
	ErrorChannelID string `mapstructure:"error-channel"`
	// Prefix is prepended to every message, typically the site name.
	Prefix string `mapstructure:"prefix"`
}

func (o SlackOption) Enabled() bool {
	return o.Token != "" && (o.InfoChannelID != "" || o.ErrorChannelID != "")
}

// ConnectSlack reads the bot token and channels from the environment.
func ConnectSlack() *Slack {
	return NewSlack(SlackOption{
		Token:          os.Getenv("SLACK_BOT_TOKEN"),
		InfoChannelID:  os.Getenv("SLACK_INFO_CHANNEL"),
		ErrorChannelID: os.Getenv("SLACK_ERROR_CHANNEL"),
	})
}

func NewSlack(options SlackOption, opts ...slack.Option) *Slack {
	client := slack.New(options.Token, opts...)
	return &Slack{client: client, options: options}
}

func (s *Slack) postMessage(channelID, message string) error {
	if channelID == "" {
		return nil
	}
	if s.options.Prefix != "" {
		message = fmt.Sprintf("[%s] %s", s.options.Prefix, message)
	}
	_, _, err := s.client.PostMessage(
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) Info(message string) error {
	return s.postMessage(s.options.InfoChannelID, message)
}

func (s *Slack) Error(message string) error {
	return s.postMessage(s.options.ErrorChannelID, message)
}

type Notifier interface {
	Info(message string) error
	Error(message string) error
}

// Multi sends every message to all notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Info(message string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Info(message))
	}
	return errors.Join(errs...)
}

func (m Multi) Error(message string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Error(message))
	}
	return errors.Join(errs...)
}
