package metrics

// TokenUsage records the tokens one summary consumed. Counts come from the
// provider when it reports them and from a local tokenizer otherwise.
type TokenUsage struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      int  `json:"totalTokens"`
	Estimated        bool `json:"estimated,omitempty"`
}

// NewTokenUsage derives the total from its parts.
func NewTokenUsage(prompt, completion int) TokenUsage {
	return TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
}

// IsZero reports whether usage data is absent.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}
