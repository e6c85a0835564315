package netxlite

import _ "embed" // for go:embed

// pemcerts is the Mozilla CA bundle we trust by default. We compile it
// into the binary such that the trust anchors do not depend on the
// configuration of the host running the code.
//
//go:embed certifi.pem
var pemcerts string
