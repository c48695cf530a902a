// Package script turns a topic into a narrated, beat-paced script.
//
// LLMGenerator asks an OpenAI-compatible chat model for a JSON script;
// TemplateGenerator builds one offline so the pipeline runs without
// credentials.
package script
