// Package tools defines the MCP tools served by the medusa-mcp server:
// catalog browsing, the shared cart and order placement.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/worldofchami/medusa-mcp/pkg/models"
)

// ErrInvalidArguments wraps every argument validation failure. The server
// reports it as a JSON-RPC "Invalid params" error instead of a tool result.
var ErrInvalidArguments = errors.New("invalid arguments")

// Tool is one entry of tools/list. Call receives the raw arguments object.
// Failures the user should read come back as a result with IsError set; a
// returned error means the call itself was malformed.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Annotations map[string]any
	Meta        map[string]any
	Call        func(ctx context.Context, args json.RawMessage) (models.ToolResult, error)
}

// ReadOnly marks the tool as not modifying anything the user cares about.
func (t Tool) ReadOnly() Tool {
	t.Annotations = map[string]any{"readOnlyHint": true}
	return t
}

func (t Tool) withWidget(w widget) Tool {
	t.Meta = w.meta()
	return t
}

// widget names the template a host renders a tool's structured content with.
type widget struct {
	name     string
	invoking string
	invoked  string
}

var (
	searchWidget = widget{"product-search-result", "Searching products...", "Products loaded"}
	detailWidget = widget{"product-detail", "Loading product details...", "Product loaded"}
	cartWidget   = widget{"cart", "Loading cart...", "Cart loaded"}
)

func (w widget) template() string {
	return "ui://widget/" + w.name + ".html"
}

func (w widget) meta() map[string]any {
	return map[string]any{
		"openai/outputTemplate":          w.template(),
		"openai/toolInvocation/invoking": w.invoking,
		"openai/toolInvocation/invoked":  w.invoked,
		"openai/widgetAccessible":        true,
	}
}

// render attaches props and the widget template to a text result.
func (w widget) render(text string, props any) models.ToolResult {
	r := models.Text(text)
	r.StructuredContent = props
	r.Meta = map[string]any{"openai/outputTemplate": w.template()}
	return r
}

// newTool builds a Tool whose input schema is reflected from P. Arguments
// are validated against that schema before being decoded into P.
func newTool[P any](name, description string, call func(ctx context.Context, params P) (models.ToolResult, error)) Tool {
	schema, validator := reflectSchema[P]()
	return Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Call: func(ctx context.Context, args json.RawMessage) (models.ToolResult, error) {
			params, err := decodeArgs[P](validator, args)
			if err != nil {
				return models.ToolResult{}, err
			}
			return call(ctx, params)
		},
	}
}

func reflectSchema[P any]() (map[string]any, *gojsonschema.Schema) {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	reflected := r.Reflect(new(P))

	b, err := json.Marshal(reflected)
	if err != nil {
		panic(fmt.Sprintf("marshal schema for %T: %v", *new(P), err))
	}
	var schema map[string]any
	if err := json.Unmarshal(b, &schema); err != nil {
		panic(fmt.Sprintf("unmarshal schema for %T: %v", *new(P), err))
	}
	// Hosts and the validator only need the schema body.
	delete(schema, "$schema")
	delete(schema, "$id")
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}

	validator, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("compile schema for %T: %v", *new(P), err))
	}
	return schema, validator
}

func decodeArgs[P any](validator *gojsonschema.Schema, args json.RawMessage) (P, error) {
	var params P
	if trimmed := bytes.TrimSpace(args); len(trimmed) == 0 || string(trimmed) == "null" {
		args = json.RawMessage("{}")
	}

	result, err := validator.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return params, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return params, fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(problems, "; "))
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return params, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return params, nil
}
