// Package rules parses the versioned knowledge base document into the lookup
// structures that drive classification.
//
// A document maps category names to rule keys: bare file names match exactly,
// dot-prefixed keys match extensions. Extension keys claimed by more than one
// category form an ordered ambiguity list that the content sniffer resolves.
// Documents older than MinSupportedVersion are rejected; newer versions load.
//
// The package also owns the knowledge base mutation path used by the rule
// learning workflow: single-rule upserts with backup/restore and bulk CSV
// import. The Store itself is immutable; reload after mutating to pick up new
// rules.
package rules
