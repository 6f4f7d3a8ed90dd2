package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/config"
	"github.com/worldofchami/medusa-mcp/pkg/logging"
	"github.com/worldofchami/medusa-mcp/pkg/notify"
	"github.com/worldofchami/medusa-mcp/pkg/platforms/medusa"
	"github.com/worldofchami/medusa-mcp/pkg/tools"
)

// CLI for running the store tools without MCP.
//
// Examples:
//
//	go run ./cmd/medusa-cli search --query sweatshirt
//	go run ./cmd/medusa-cli product --id prod_01...
//	go run ./cmd/medusa-cli cart show --scope alice
//
// Output is shaped like an MCP tool result: {"content":[...]}
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log := logrus.NewEntry(logging.New("warn"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	carts, closeCarts, err := cart.Open(ctx, cart.OpenOptions{
		Kind:          cfg.CartBackend,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		DBPath:        cfg.CartDBPath,
	}, log)
	if err != nil {
		fail(err)
	}
	defer closeCarts()

	toolset := tools.All(tools.Deps{
		Catalog:    medusa.NewClient(cfg.MedusaURL, medusa.WithPublishableKey(cfg.PublishableKey), medusa.WithLogger(log)),
		Carts:      carts,
		OrderEmail: cfg.OrderEmail,
		Notifier:   notify.Log{Log: log},
		Log:        log,
	})

	switch os.Args[1] {
	case "search":
		search(ctx, toolset, os.Args[2:])
	case "product":
		product(ctx, toolset, os.Args[2:])
	case "cart":
		cartCommand(ctx, toolset, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	_, _ = fmt.Fprintln(os.Stderr, "usage:")
	_, _ = fmt.Fprintln(os.Stderr, "  medusa-cli search [--query <query>] [--limit <n>]")
	_, _ = fmt.Fprintln(os.Stderr, "  medusa-cli product --id <product id>")
	_, _ = fmt.Fprintln(os.Stderr, "  medusa-cli cart show|clear|order [--scope <scope>]")
}

func search(ctx context.Context, toolset []tools.Tool, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("query", "", "product search query (e.g. \"sweatshirt\")")
	limit := fs.Int("limit", 20, "maximum number of products")
	_ = fs.Parse(args)

	params := map[string]any{"limit": *limit}
	if *query != "" {
		params["query"] = *query
	}
	run(ctx, toolset, "search-products", params)
}

func product(ctx context.Context, toolset []tools.Tool, args []string) {
	fs := flag.NewFlagSet("product", flag.ExitOnError)
	id := fs.String("id", "", "Medusa product ID")
	_ = fs.Parse(args)

	if *id == "" {
		_, _ = fmt.Fprintln(os.Stderr, "product requires --id")
		usage()
		os.Exit(2)
	}
	run(ctx, toolset, "get-product-details", map[string]any{"product_id": *id})
}

func cartCommand(ctx context.Context, toolset []tools.Tool, args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet("cart", flag.ExitOnError)
	scope := fs.String("scope", cart.DefaultScope, "cart scope (the chat session ID)")
	_ = fs.Parse(args[1:])
	ctx = cart.WithScope(ctx, *scope)

	switch args[0] {
	case "show":
		run(ctx, toolset, "view-cart", map[string]any{})
	case "clear":
		run(ctx, toolset, "clear-cart", map[string]any{})
	case "order":
		run(ctx, toolset, "place-order", map[string]any{})
	default:
		usage()
		os.Exit(2)
	}
}

func run(ctx context.Context, toolset []tools.Tool, name string, params map[string]any) {
	tool, ok := tools.Find(toolset, name)
	if !ok {
		fail(fmt.Errorf("unknown tool %s", name))
	}
	raw, err := json.Marshal(params)
	if err != nil {
		fail(err)
	}
	result, err := tool.Call(ctx, raw)
	if err != nil {
		fail(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fail(err)
	}
	if result.IsError {
		os.Exit(1)
	}
}

func fail(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
