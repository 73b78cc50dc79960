// internal/app/features/groups/listtypes.go
package groups

import (
	"github.com/dalemusser/studyhub/internal/app/store/queries/groupqueries"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
)

// groupListData is the view model for the browse and "my groups" pages.
type groupListData struct {
	viewdata.BaseVM

	Heading  string
	Action   string // form action for search and paging links
	Mine     bool
	Admin    bool
	Subjects []string

	SearchQuery     string
	SelectedSubject string

	Shown      int
	Total      int64
	HasPrev    bool
	HasNext    bool
	PrevCursor string
	NextCursor string
	RangeStart int
	RangeEnd   int
	PrevStart  int
	NextStart  int

	Groups []groupqueries.GroupListItem
}
