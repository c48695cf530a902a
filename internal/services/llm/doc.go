// Package llm talks to OpenAI-compatible chat completion endpoints
// (OpenRouter by default) on behalf of the script generator.
//
// The client only issues JSON-mode completions. Transport failures that
// never reached the model (408, 429, 5xx, network timeouts, empty content)
// are retried with capped exponential backoff; everything else is returned
// to the caller on the first attempt. DecodeJSON tolerates code fences and
// prose around the JSON payload because models routinely add them.
package llm
