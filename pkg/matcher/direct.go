package matcher

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/agent/toolloop"
	"eolmatch/pkg/backoff"
	"eolmatch/pkg/config"
	"eolmatch/pkg/contextmgr"
	"eolmatch/pkg/eol"
	"eolmatch/pkg/logx"
	"eolmatch/pkg/tools"
)

// directMaxTokens bounds a single-item answer when Options.MaxTokens is unset.
const directMaxTokens = 1000

// ReferenceProvider supplies the reference list.
type ReferenceProvider interface {
	Get(ctx context.Context) ([]string, error)
}

// Direct matches each input with one completion call, then looks up
// end-of-life data for low-confidence matches.
type Direct struct {
	client    llm.LLMClient
	reference ReferenceProvider
	tools     toolloop.ToolExecutor
	sleeper   backoff.Sleeper
	opts      Options
	logger    *logx.Logger
}

// NewDirect creates the direct runner. A nil sleeper sleeps for real.
func NewDirect(client llm.LLMClient, reference ReferenceProvider, executor toolloop.ToolExecutor, sleeper backoff.Sleeper, opts Options, logger *logx.Logger) *Direct {
	if sleeper == nil {
		sleeper = backoff.Real()
	}
	if logger == nil {
		logger = logx.NewLogger("direct")
	}
	return &Direct{client: client, reference: reference, tools: executor, sleeper: sleeper, opts: opts, logger: logger}
}

// Run matches inputs one at a time. Cancellation stops between items and keeps
// the records already produced.
func (d *Direct) Run(ctx context.Context, inputs []string) RunResult {
	result := RunResult{Mode: config.ModeDirect, Transcript: contextmgr.NewTranscript()}

	reference, err := d.reference.Get(ctx)
	if err != nil {
		result.Status = toolloop.StatusError
		result.Err = fmt.Errorf("load reference list: %w", err)
		return result
	}
	d.logger.Info("Matching %d datastores against %d reference entries", len(inputs), len(reference))

	for i, input := range inputs {
		if i > 0 && d.opts.InterCallDelay > 0 {
			if err := d.sleeper.Sleep(ctx, d.opts.InterCallDelay); err != nil {
				return d.cancelled(result, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return d.cancelled(result, err)
		}
		result.Iterations = i + 1

		rec, raw, err := d.matchOne(ctx, input, reference, result.Transcript)
		if err != nil && ctx.Err() != nil {
			return d.cancelled(result, ctx.Err())
		}
		if raw != "" {
			result.RawText = raw
		}

		if rec.MatchedName != NotFound && rec.MatchedName != MatchFailed && rec.NeedsLookup(d.opts.ConfidenceThreshold) {
			if call, ok := d.lookup(ctx, i+1, input, rec.MatchedName); ok {
				result.ToolCalls = append(result.ToolCalls, call)
				if env, isResult := call.Payload.(eol.Result); isResult {
					rec.Enrichment = &env
				}
			}
		}
		result.Records = append(result.Records, rec)
	}

	result.Status = toolloop.StatusComplete
	return result
}

func (d *Direct) cancelled(result RunResult, cause error) RunResult {
	d.logger.Warn("Direct run interrupted after %d items: %v", len(result.Records), cause)
	result.Status = toolloop.StatusIncomplete
	result.Err = fmt.Errorf("%w: %w", toolloop.ErrGracefulShutdown, cause)
	return result
}

// matchOne never fails the run: call errors become MatchFailed records and
// unparseable answers become NotFound records.
func (d *Direct) matchOne(ctx context.Context, input string, reference []string, transcript *contextmgr.Transcript) (MatchRecord, string, error) {
	d.logger.Info("Matching datastore: %s", input)

	prompt := DirectPrompt(input, reference)
	transcript.AddUser(prompt)

	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage(prompt)})
	req.MaxTokens = d.opts.MaxTokens
	if req.MaxTokens <= 0 {
		req.MaxTokens = directMaxTokens
	}
	req.Temperature = float32(d.opts.Temperature)

	resp, err := d.client.Complete(ctx, req)
	if err != nil {
		d.logger.Error("Error in LLM matching for %q: %v", input, err)
		return MatchRecord{
			InputName:   input,
			MatchedName: MatchFailed,
			Reasoning:   fmt.Sprintf("Error during matching: %v", err),
		}, "", err
	}

	text := strings.TrimSpace(resp.Content)
	transcript.AddAssistant(text, nil)

	rec, perr := parseDirect(input, text)
	if perr != nil {
		d.logger.Error("Failed to parse answer for %q: %v", input, perr)
		return rec, text, nil
	}
	d.logger.Info("Match result: %s (confidence: %.2f)", rec.MatchedName, rec.Confidence)
	return rec, text, nil
}

// parseDirect reads a {matched_datastore, confidence, reasoning} answer.
func parseDirect(input, text string) (MatchRecord, error) {
	obj, err := ExtractObject(text)
	if err == nil {
		res := gjson.ParseBytes(obj)
		if !res.Get("matched_datastore").Exists() || !res.Get("confidence").Exists() {
			err = fmt.Errorf("%w: matched_datastore and confidence", ErrMissingField)
		} else {
			return MatchRecord{
				InputName:   input,
				MatchedName: strings.TrimSpace(res.Get("matched_datastore").String()),
				Confidence:  clamp(res.Get("confidence").Float()),
				Reasoning:   res.Get("reasoning").String(),
			}, nil
		}
	}
	return MatchRecord{
		InputName:   input,
		MatchedName: NotFound,
		Confidence:  0,
		Reasoning:   fmt.Sprintf("Failed to parse LLM response: %v: %s", err, text),
	}, err
}

// lookup calls lookup_version with the matched product name and the version the
// user wrote. It is skipped when no version can be found in either name.
func (d *Direct) lookup(ctx context.Context, iteration int, input, matched string) (toolloop.ToolCallRecord, bool) {
	product, version := SplitNameVersion(matched)
	inputProduct, inputVersion := SplitNameVersion(input)
	if inputVersion != "" {
		version = inputVersion
	}
	if product == "" {
		product = inputProduct
	}
	if product == "" || version == "" {
		d.logger.Info("Skipping lookup for %q: no product/version to look up", input)
		return toolloop.ToolCallRecord{}, false
	}

	args := map[string]any{"product": product, "version": version}
	res := d.tools.Execute(ctx, tools.ToolLookupVersion, args)
	return toolloop.ToolCallRecord{
		Iteration: iteration,
		CallID:    fmt.Sprintf("direct-%d", iteration),
		ToolName:  tools.ToolLookupVersion,
		Arguments: args,
		Payload:   res.Payload,
		Content:   res.Content,
		IsError:   res.IsError,
	}, true
}

var nameVersionRe = regexp.MustCompile(`^(.*?)[\s:_-]+[vV]?(\d.*)$`)

// SplitNameVersion splits "PostgreSQL 14.6" into ("PostgreSQL", "14.6"). The
// version starts at the first separator followed by a digit; names without one
// return an empty version.
func SplitNameVersion(s string) (name, version string) {
	s = strings.TrimSpace(s)
	m := nameVersionRe.FindStringSubmatch(s)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return strings.TrimRight(s, ": "), ""
	}
	return strings.TrimRight(strings.TrimSpace(m[1]), ":"), strings.TrimSpace(m[2])
}
