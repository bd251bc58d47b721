// Package kbassist embeds the web front end's templates and static assets.
package kbassist

import "embed"

// In dev mode (DEV=true) assets are read from disk instead.

//go:embed all:frontend/static
var StaticFS embed.FS

//go:embed all:frontend/templates
var TemplateFS embed.FS
