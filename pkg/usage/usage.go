package usage

// Tokens is normalized token-usage accounting from a completions response.
// Each counter is optional: nil means the provider did not report the
// metric. Values are structurally compared; Tokens has no identity and is
// never persisted on its own.
type Tokens struct {
	// Prompt is the token count of the input side. Populated from
	// prompt_tokens, falling back to input_tokens.
	Prompt *int `json:"prompt_tokens,omitempty"`

	// Completion is the token count of the generated output. Populated from
	// completion_tokens, falling back to output_tokens.
	Completion *int `json:"completion_tokens,omitempty"`

	// Reasoning is the hidden reasoning-token count reported by reasoning
	// models under output_token_details. Never defaulted: nil when the
	// provider does not report it.
	Reasoning *int `json:"reasoning_tokens,omitempty"`

	// Total is the provider-reported total_tokens, or the sum of the
	// present prompt/completion counters when the provider omits it.
	Total *int `json:"total_tokens,omitempty"`
}

// Int returns a pointer to v. Convenience for building Tokens values.
func Int(v int) *int {
	return &v
}

// Equal reports whether two usage values are structurally equal.
// Both operands may be nil; two nils are equal.
func (t *Tokens) Equal(o *Tokens) bool {
	if t == nil || o == nil {
		return t == o
	}
	return eqInt(t.Prompt, o.Prompt) &&
		eqInt(t.Completion, o.Completion) &&
		eqInt(t.Reasoning, o.Reasoning) &&
		eqInt(t.Total, o.Total)
}

// IsZero reports whether no counter is populated.
func (t *Tokens) IsZero() bool {
	if t == nil {
		return true
	}
	return t.Prompt == nil && t.Completion == nil && t.Reasoning == nil && t.Total == nil
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
