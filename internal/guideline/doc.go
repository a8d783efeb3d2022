// Package guideline resolves layered guideline documents into canonical,
// uniquely identified rule sets.
//
// A document is a YAML source with an ordered list of builtin preset
// includes and an ordered list of inline guideline declarations. Each
// document resolves to one Set, and each Set drives exactly one review
// pass. Resolution is a pure function of the input sources.
package guideline
