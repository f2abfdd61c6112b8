// Package trace turns journal rows into canonical JSON trace events.
//
// A trace is one event per line: frame summaries, object syncs and played
// commands, ordered by frame and then by the order they were recorded.
// Encoding is canonical (sorted keys in UTF-16 order, NFC strings, no HTML
// escaping, integers only) so two runs of the same scenario produce
// byte-identical traces and stable digests.
package trace
