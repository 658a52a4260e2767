// Package usage normalizes token-usage accounting reported by
// OpenAI-compatible completions APIs.
//
// Providers report usage in heterogeneous shapes: chat-completions bodies
// carry prompt_tokens/completion_tokens, responses-style bodies carry
// input_tokens/output_tokens, and reasoning models add an
// output_token_details sub-object. Streaming responses wrap the same JSON
// in Server-Sent-Event frames and usually emit usage once, in the final
// frame. This package folds all of those shapes into a single Tokens value.
//
// # Optionality
//
// Every counter in Tokens is a pointer: nil means "not reported", which is
// semantically different from zero. Downstream consumers (log lines,
// metrics, persistence) must omit absent counters rather than defaulting
// them.
//
// # Usage
//
//	if t := usage.ParseResponse(body); t != nil {
//		fmt.Println(*t.Total)
//	}
//
// Parsing is tolerant: malformed JSON, missing sub-objects, and
// absent fields all yield nil results, never errors. Usage can legitimately
// be absent from a response, and in streams it can appear in any chunk; the
// caller decides what absence means.
package usage
