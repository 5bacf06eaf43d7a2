// Package web holds the static pages served by the POS server.
package web

import "embed"

// Pages contains index.html and pos.html.
//
//go:embed index.html pos.html
var Pages embed.FS
