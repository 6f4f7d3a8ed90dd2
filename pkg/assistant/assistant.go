// Package assistant runs a chat agent that shops through the MCP server's
// tools and keeps a short per-session conversation history.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
)

const (
	DefaultModel   = "gpt-4o"
	DefaultSession = "default"

	replyTimeout = 60 * time.Second
)

// RunFunc runs the agent against a prompt and returns its final text output.
type RunFunc func(ctx context.Context, agent *agents.Agent, prompt string) (string, error)

type Assistant struct {
	history *History
	tools   []agents.Tool
	model   string
	run     RunFunc
	log     *logrus.Entry
}

type Option func(*Assistant)

func WithModel(model string) Option {
	return func(a *Assistant) {
		if model != "" {
			a.model = model
		}
	}
}

// WithRunner replaces the agent runner.
func WithRunner(run RunFunc) Option {
	return func(a *Assistant) {
		if run != nil {
			a.run = run
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(a *Assistant) {
		if log != nil {
			a.log = log
		}
	}
}

func New(history *History, mcp ToolCaller, opts ...Option) *Assistant {
	a := &Assistant{
		history: history,
		tools:   Tools(mcp),
		model:   DefaultModel,
		run:     runAgent,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithField("component", "assistant")
	return a
}

func runAgent(ctx context.Context, agent *agents.Agent, prompt string) (string, error) {
	result, err := agents.Run(ctx, agent, prompt)
	if err != nil {
		return "", err
	}
	output, ok := result.FinalOutput.(string)
	if !ok {
		return "", fmt.Errorf("unexpected agent output %T", result.FinalOutput)
	}
	return output, nil
}

// Reply answers prompt within the session's conversation. The session ID
// doubles as the cart scope, so each conversation shops with its own cart.
func (a *Assistant) Reply(ctx context.Context, sessionID, prompt string) (string, error) {
	if prompt == "" {
		return "", errors.New("prompt is required")
	}
	if sessionID == "" {
		sessionID = DefaultSession
	}
	log := a.log.WithField("session", sessionID)

	// History is read before the new turn is stored so it is not repeated.
	history, err := a.history.Context(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("failed to load history")
		history = ""
	}
	if err := a.history.Add(ctx, sessionID, Message{Role: RoleUser, Content: prompt}); err != nil {
		log.WithError(err).Warn("failed to store user message")
	}

	agent := agents.New("ShoppingAssistant").
		WithInstructions(instructions).
		WithModel(a.model).
		WithTools(a.tools...)

	ctx, cancel := context.WithTimeout(cart.WithScope(ctx, sessionID), replyTimeout)
	defer cancel()

	output, err := a.run(ctx, agent, prompt+history)
	if err != nil {
		return "", fmt.Errorf("agent error: %w", err)
	}

	if err := a.history.Add(ctx, sessionID, Message{Role: RoleAssistant, Content: output}); err != nil {
		log.WithError(err).Warn("failed to store assistant message")
	}
	log.WithField("chars", len(output)).Info("reply sent")
	return output, nil
}

const instructions = `You are a friendly shopping assistant for an online store.

You can search the catalog, look up product details, manage the customer's cart, and place orders.

Guidelines:
- Use search_products to find products. Mention the price and whether it is in stock.
- Before adding an item, use get_product_details when the product has several variants and ask the customer which one they want.
- Prices from the tools are in cents. Show them to the customer in the store currency, for example 35.00 EUR.
- After changing the cart, briefly confirm what changed and the new total.
- Use view_cart to get line item IDs before updating or removing items.
- Only call place_order after the customer has explicitly confirmed they want to order what is in the cart.
- If a tool reports an error, explain it plainly and suggest what the customer can do next.
- Keep answers short and conversational.`
