// Package portal provides embedded assets for production builds.
package portal

import "embed"

// TemplateFS holds the server-rendered page templates.
//
//go:embed all:web/templates
var TemplateFS embed.FS
