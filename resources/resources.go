package resources

import (
	"embed"
)

//go:embed migrations i18n
var FS embed.FS
