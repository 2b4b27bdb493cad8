package llm

// Turn is the classified form of a CompletionResponse. Exactly one of
// FinalText, ToolRequests or Unexpected is produced per response.
type Turn interface {
	turn()
}

// FinalText means the model finished and Text holds its answer.
type FinalText struct {
	Text string
}

// ToolRequests means the model asked for one or more tool executions.
type ToolRequests struct {
	Text  string // optional narration accompanying the calls
	Calls []ToolCall
}

// Unexpected means the response ended for any other reason, e.g. max_tokens.
type Unexpected struct {
	StopReason string
	Text       string
}

func (FinalText) turn()    {}
func (ToolRequests) turn() {}
func (Unexpected) turn()   {}

// Classify maps a response to its Turn variant.
func Classify(resp CompletionResponse) Turn {
	switch resp.StopReason {
	case StopToolUse:
		if len(resp.ToolCalls) == 0 {
			return Unexpected{StopReason: resp.StopReason, Text: resp.Content}
		}
		return ToolRequests{Text: resp.Content, Calls: resp.ToolCalls}
	case StopEndTurn:
		return FinalText{Text: resp.Content}
	default:
		return Unexpected{StopReason: resp.StopReason, Text: resp.Content}
	}
}
