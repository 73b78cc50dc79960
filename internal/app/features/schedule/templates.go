// internal/app/features/schedule/templates.go
package schedule

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "schedule",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
