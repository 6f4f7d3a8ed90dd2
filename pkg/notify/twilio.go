package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// maxMessageLength is Twilio's body limit.
const maxMessageLength = 1600

// MessageCreator is the part of the Twilio REST API used to send messages.
type MessageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Twilio sends order notifications over SMS or WhatsApp.
type Twilio struct {
	api  MessageCreator
	from string
	to   string
	log  *logrus.Entry
}

// NewTwilio builds a notifier from account credentials. from and to are
// phone numbers; prefix them with "whatsapp:" to use WhatsApp.
func NewTwilio(accountSID, authToken, from, to string, log *logrus.Entry) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewTwilioWithAPI(client.Api, from, to, log)
}

func NewTwilioWithAPI(api MessageCreator, from, to string, log *logrus.Entry) *Twilio {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Twilio{
		api:  api,
		from: FormatPhoneNumber(from),
		to:   FormatPhoneNumber(to),
		log:  log.WithField("component", "twilio"),
	}
}

func (t *Twilio) OrderPlaced(_ context.Context, order Order) error {
	body := Message(order)
	if len(body) > maxMessageLength {
		t.log.Warnf("message exceeds %d characters, truncating", maxMessageLength)
		body = body[:maxMessageLength-3] + "..."
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(t.to)
	params.SetFrom(t.from)
	params.SetBody(body)

	msg, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send order notification: %w", err)
	}

	entry := t.log.WithField("order", order.Reference)
	if msg != nil && msg.Sid != nil {
		entry = entry.WithField("sid", *msg.Sid)
	}
	entry.Info("order notification sent")
	return nil
}

// FormatPhoneNumber normalises a number to E.164 (+ prefix, digits only),
// keeping a "whatsapp:" channel prefix when present.
func FormatPhoneNumber(phone string) string {
	phone = strings.TrimSpace(phone)
	channel := ""
	if rest, ok := strings.CutPrefix(phone, "whatsapp:"); ok {
		channel = "whatsapp:"
		phone = rest
	}

	var result strings.Builder
	for _, char := range phone {
		if char >= '0' && char <= '9' || char == '+' {
			result.WriteRune(char)
		}
	}
	phone = result.String()

	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return channel + phone
}
