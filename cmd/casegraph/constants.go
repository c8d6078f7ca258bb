package main

// Default limits for CLI commands.
const (
	DefaultListLimit    = 50
	DefaultSearchLimit  = 20
	DefaultHistoryLimit = 20
	DefaultLinkDepth    = 1
	MaxLinkDepth        = 5
)

// Valid export formats.
var validFormats = []string{"json", "csv", "markdown", "lsdb"}
