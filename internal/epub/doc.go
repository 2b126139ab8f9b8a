// Package epub reads EPUB containers and exposes the signals the extractor
// needs: declared-order descriptive metadata, spine-ordered document
// payloads, embedded binary items, and the declared-cover lookup.
//
// The Book interface is the collaborator boundary; Open provides the
// default zip/OPF-backed implementation. Parse failures surface as a single
// invalid-container error so the pipeline can record them as its top-level
// failure.
package epub
