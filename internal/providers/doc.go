// Package providers implements the LLM backends that generate review
// findings, behind a single completion interface.
//
// The Generator adapts any Completer into the engine's finding
// generator: it builds the pass prompt from the guideline set and the
// annotated diff, parses the model's JSON response, and caches
// responses keyed by their inputs.
package providers
