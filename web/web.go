// Package web holds the admin page templates.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS
