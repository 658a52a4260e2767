package usage

import (
	"bytes"

	"github.com/tidwall/gjson"
)

const (
	// sseDataPrefix is the Server-Sent-Events field prefix used by
	// completions streams.
	sseDataPrefix = "data:"

	// sseDoneSentinel is the frame payload that terminates a completions
	// SSE stream. It carries no usage and is skipped.
	sseDoneSentinel = "[DONE]"
)

// ParseResponse extracts normalized token usage from a completions response
// body (one JSON object). It returns nil when the body is not valid JSON,
// when the usage sub-object is absent, not an object, or empty. Those are
// normal conditions that callers surface as missing usage, not errors.
//
// Field resolution per metric, first present wins:
//   - prompt:     prompt_tokens, then input_tokens
//   - completion: completion_tokens, then output_tokens
//   - total:      total_tokens, else the sum of the present prompt and
//     completion counters
//   - reasoning:  output_token_details.reasoning_tokens, nil when absent
//
// Negative or non-numeric values are treated as absent.
//
// Example usage:
//
//	body := []byte(`{"usage":{"prompt_tokens":10,"completion_tokens":20}}`)
//	t := usage.ParseResponse(body)
//	// t.Prompt=10, t.Completion=20, t.Total=30, t.Reasoning=nil
func ParseResponse(body []byte) *Tokens {
	if !gjson.ValidBytes(body) {
		return nil
	}
	u := gjson.GetBytes(body, "usage")
	if !u.IsObject() {
		return nil
	}
	empty := true
	u.ForEach(func(_, _ gjson.Result) bool {
		empty = false
		return false
	})
	if empty {
		return nil
	}

	t := &Tokens{
		Prompt:     firstCount(u, "prompt_tokens", "input_tokens"),
		Completion: firstCount(u, "completion_tokens", "output_tokens"),
		Reasoning:  count(u.Get("output_token_details.reasoning_tokens")),
	}
	if total := count(u.Get("total_tokens")); total != nil {
		t.Total = total
	} else {
		t.Total = sumCounts(t.Prompt, t.Completion)
	}
	return t
}

// ParseStreamChunk extracts normalized token usage from one chunk of a
// streaming response. Each line carrying the SSE data: prefix is stripped,
// the [DONE] sentinel is skipped, and the remainder is parsed as JSON and
// delegated to ParseResponse; the first line yielding a result wins
// (provider streams emit usage once, typically in the final frame).
//
// When no SSE-framed line yields usage, the whole chunk is parsed as plain
// JSON, since some upstreams chunk unframed JSON bodies. Malformed JSON at any
// stage means "no usage in this chunk": usage can legitimately arrive in a
// later chunk, so nothing here is an error.
func ParseStreamChunk(chunk []byte) *Tokens {
	for _, line := range bytes.Split(chunk, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte(sseDataPrefix)) {
			continue
		}
		payload := bytes.TrimSpace(line[len(sseDataPrefix):])
		if len(payload) == 0 || string(payload) == sseDoneSentinel {
			continue
		}
		if t := ParseResponse(payload); t != nil {
			return t
		}
	}

	if t := ParseResponse(bytes.TrimSpace(chunk)); t != nil {
		return t
	}
	return nil
}

// count converts a JSON value to a token counter. Non-numeric and negative
// values are absent.
func count(r gjson.Result) *int {
	if r.Type != gjson.Number {
		return nil
	}
	v := r.Int()
	if v < 0 {
		return nil
	}
	n := int(v)
	return &n
}

// firstCount resolves a metric against candidate field names in order.
func firstCount(obj gjson.Result, keys ...string) *int {
	for _, k := range keys {
		if v := count(obj.Get(k)); v != nil {
			return v
		}
	}
	return nil
}

// sumCounts adds the present operands; nil when both are absent.
func sumCounts(a, b *int) *int {
	if a == nil && b == nil {
		return nil
	}
	s := 0
	if a != nil {
		s += *a
	}
	if b != nil {
		s += *b
	}
	return &s
}
