// internal/app/features/students/types.go
package students

import (
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

// listLimit caps one page of the student list; narrow with search.
const listLimit = 200

type statusTab struct {
	Value  string
	Label  string
	Count  int64
	Active bool
}

type listData struct {
	viewdata.BaseVM

	Students []models.User
	Tabs     []statusTab
	Status   string
	Search   string
	Capped   bool

	// ReturnURL brings moderation forms back to this filtered list.
	ReturnURL string
}

type viewData struct {
	viewdata.BaseVM

	Student models.User
	Groups  []models.StudyGroup

	ReturnURL string
}
