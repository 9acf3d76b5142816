// Package tree holds the raw syntax tree handed over by the upstream parser and
// the decoders for the file formats such trees are stored in.
//
// A Node is a type tag, a flat map of scalar attributes and an ordered list of
// children. Nothing here interprets the tags; see internal/ast for the typed view.
//
// Supported formats: JSON, YAML, MessagePack and the XML dump the upstream
// tree generator writes (element name = type, XML attributes = attributes).
package tree
