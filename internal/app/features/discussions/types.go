// internal/app/features/discussions/types.go
package discussions

import (
	"html/template"

	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

type listData struct {
	viewdata.BaseVM

	Group          models.StudyGroup
	Discussions    []content.DiscussionView
	CanParticipate bool
	CanManage      bool
}

type formData struct {
	viewdata.BaseVM

	Group  models.StudyGroup
	In     content.DiscussionInput
	Errors map[string]string
}

type replyRow struct {
	content.ReplyView
	Body      template.HTML
	CanDelete bool
}

type threadData struct {
	viewdata.BaseVM

	Group      models.StudyGroup
	Discussion content.DiscussionView
	Body       template.HTML
	Replies    []replyRow

	CanParticipate bool
	CanManage      bool
	CanDelete      bool

	ReplyDraft string
	ReplyError string
}
