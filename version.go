package projctx

import _ "embed"

// Version is the version of the library and CLI.
//
//go:embed VERSION
var Version string
