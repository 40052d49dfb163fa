// Package normalisers provides implementations of the Normaliser interface
// for the document formats a corpus may contain, and the Registry that
// selects between them by MIME type and priority.
//
// Normalisers are registered with the Registry at startup.
package normalisers
