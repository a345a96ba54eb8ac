// Package advisor computes narrative financial insights: it aggregates a
// user's trailing financial history, derives metrics, asks an LLM provider
// for an interpretation under strict validation, and falls back to a
// deterministic template synthesizer so a schema-valid insight is always
// returned.
package advisor
