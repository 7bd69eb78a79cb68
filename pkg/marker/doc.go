// Package marker parses the two annotations a note can carry and renders them.
//
// An inline marker ties a span of text to a citation id:
//
//	[[retrieval augmented generation:1]]
//
// A citation is a single block-quoted line keyed by the same id:
//
//	> [1] Combines a search step with text generation.
//
// Parsing works line by line and never fails. Markers may share an id, and a
// marker may exist without a citation and the other way around.
package marker
