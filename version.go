package conduit

import _ "embed"

// Version is the release of this module, read from the VERSION file at build time.
//
//go:embed VERSION
var Version string
