package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"eolmatch/pkg/eol"
)

// Lookuper resolves a product/version pair to lifecycle data.
type Lookuper interface {
	Lookup(ctx context.Context, product, version string) eol.Result
}

// LookupVersionTool fetches end-of-life and version data for a product.
type LookupVersionTool struct {
	service Lookuper
}

// NewLookupVersionTool creates the tool.
func NewLookupVersionTool(service Lookuper) *LookupVersionTool {
	return &LookupVersionTool{service: service}
}

// Name returns the tool name.
func (t *LookupVersionTool) Name() string {
	return ToolLookupVersion
}

// Definition returns the tool definition for the model.
func (t *LookupVersionTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: ToolLookupVersion,
		Description: "Look up release-cycle, end-of-life and support data for a datastore product and version. " +
			"Use it when a match has confidence below the threshold to confirm the version exists.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"product": {
					Type:        "string",
					Description: "Product name, e.g. 'PostgreSQL', 'Microsoft SQL Server', 'MongoDB'",
				},
				"version": {
					Type:        "string",
					Description: "Version string as written in the input, e.g. '14.6', '2019', '5.7.x-log'",
				},
			},
			Required: []string{"product", "version"},
		},
	}
}

// Exec performs the lookup. Invalid arguments surface as INVALID_INPUT results.
func (t *LookupVersionTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	product := stringArg(args, "product")
	version := stringArg(args, "version")
	return &ExecResult{Payload: t.service.Lookup(ctx, product, version)}, nil
}

// stringArg reads a string argument, accepting numbers the model emitted unquoted.
func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
