// Package pdf provides a Normaliser for PDF documents. Text is read page
// by page with the pure-Go ledongthuc/pdf reader, so no external tools
// are required.
package pdf
