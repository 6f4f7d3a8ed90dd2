package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/worldofchami/medusa-mcp/pkg/logging"
)

type fakeMessages struct {
	sent []*openapi.CreateMessageParams
	err  error
}

func (f *fakeMessages) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func price(v int64) *int64 { return &v }

func sampleOrder() Order {
	return Order{
		Reference:    "#42",
		Email:        "buyer@example.com",
		CurrencyCode: "eur",
		Lines: []Line{
			{Title: "Sweatshirt", Quantity: 2, Price: price(3500)},
			{Title: "Sticker", Quantity: 1},
		},
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t,
		"New order #42 from buyer@example.com\n- 2x Sweatshirt\n- 1x Sticker\nTotal: €70.00",
		Message(sampleOrder()))

	assert.Equal(t, "New order order_1\n- 1x Mug", Message(Order{
		Reference: "order_1",
		Lines:     []Line{{Title: "Mug", Quantity: 1}},
	}))
}

func TestTwilio_OrderPlaced(t *testing.T) {
	api := &fakeMessages{}
	n := NewTwilioWithAPI(api, "+1 (555) 000-1111", "whatsapp:27 82 000 0000", logging.Discard())

	require.NoError(t, n.OrderPlaced(context.Background(), sampleOrder()))
	require.Len(t, api.sent, 1)
	assert.Equal(t, "+15550001111", *api.sent[0].From)
	assert.Equal(t, "whatsapp:+27820000000", *api.sent[0].To)
	assert.Contains(t, *api.sent[0].Body, "New order #42")
}

func TestTwilio_Truncates(t *testing.T) {
	api := &fakeMessages{}
	n := NewTwilioWithAPI(api, "+1", "+2", logging.Discard())

	order := Order{Reference: "#1"}
	for range 200 {
		order.Lines = append(order.Lines, Line{Title: strings.Repeat("x", 20), Quantity: 1})
	}
	require.NoError(t, n.OrderPlaced(context.Background(), order))
	assert.Len(t, *api.sent[0].Body, maxMessageLength)
	assert.True(t, strings.HasSuffix(*api.sent[0].Body, "..."))
}

func TestTwilio_Error(t *testing.T) {
	n := NewTwilioWithAPI(&fakeMessages{err: errors.New("unauthorized")}, "+1", "+2", logging.Discard())
	err := n.OrderPlaced(context.Background(), sampleOrder())
	assert.ErrorContains(t, err, "unauthorized")
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.OrderPlaced(context.Background(), sampleOrder()))
	assert.NoError(t, Log{Log: logging.Discard()}.OrderPlaced(context.Background(), sampleOrder()))
}
