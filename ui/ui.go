// Package ui embeds the HTML templates so that the server binary is self-contained.
package ui

import "embed"

//go:embed templates
var Files embed.FS
