// Package filesystem loads the corpus from local disk: documents from a
// directory tree, curated Q&A pairs from a CSV file, and change
// notifications from fsnotify.
//
// Hidden files and directories (names starting with ".") are skipped
// everywhere. Files whose MIME type no normaliser supports are ignored.
package filesystem
