// Package markdown provides a Normaliser for Markdown documents built on
// the goldmark parser. Only prose survives normalisation.
package markdown
