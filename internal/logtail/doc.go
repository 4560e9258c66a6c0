// Package logtail reads the tail of stockroom's log file and renders its
// JSON entries for the activity view.
//
// # Reading Log Files
//
// Read keeps a ring buffer of maxLines entries while scanning the file once,
// so memory stays O(maxLines) however large the file grows:
//
//	lines, err := logtail.Read(cfg.LogFile, 200)
//
// A missing file is not an error; it yields no lines.
//
// # Formatting
//
// The client logs zap JSON. FormatLine turns an entry such as
//
//	{"level":"info","ts":"2026-10-17T14:32:15.123+0000","msg":"product deleted","id":"42"}
//
// into
//
//	14:32:15 INFO product deleted id=42
//
// Extra fields follow the message sorted by key. caller, service and
// stacktrace are dropped. Lines that are not JSON pass through unchanged.
package logtail
