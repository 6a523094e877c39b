package resources

import "embed"

// FS exposes the static resource files served under /static/.
//
//go:embed catalog.css catalog.js
var FS embed.FS
