// Package templates embeds the starter files scaffolded by warden init.
package templates

import "embed"

//go:embed config.toml spec.md prompts
var FS embed.FS
