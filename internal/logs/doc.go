// Package logs reads the JSON log files written by overlay and overlayd.
//
// Tail returns the last lines of a file or the lines appended after a saved
// offset, optionally polling until something new arrives. Filter narrows the
// lines to one renderer, one launch attempt or one event type so a failed
// launch can be read in isolation.
package logs
