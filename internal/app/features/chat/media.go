// internal/app/features/chat/media.go
package chat

import (
	"context"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
)

type resourcesData struct {
	viewdata.BaseVM

	GroupID    string
	Category   string
	Categories []string
	Items      []content.MessageView
}

// ServeMedia streams a message attachment and records the download.
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	mid, err := shared.IDParam(r, "messageID")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "download attachment", err, "/groups")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	f, m, err := h.Content.OpenMedia(ctx, actor, mid)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "download attachment", err, "/groups")
		return
	}
	defer f.Close()

	modTime := m.CreatedAt
	if m.EditedAt != nil {
		modTime = *m.EditedAt
	}
	if st, err := f.Stat(); err == nil {
		modTime = st.ModTime()
	}
	name := path.Base(m.MediaPath)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, modTime.In(time.UTC), f)
}

// ServeResources lists a group's attachments, optionally by category.
func (h *Handler) ServeResources(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "list resources", err, "/groups")
		return
	}
	category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))
	if !slices.Contains(models.MediaCategories, category) {
		category = ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Content.ListMedia(ctx, actor, gid, category)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "list resources", err, "/groups/"+gid.Hex())
		return
	}
	templates.Render(w, r, "chat_resources", resourcesData{
		BaseVM:     viewdata.NewBaseVM(r, "Resources", "/groups/"+gid.Hex()),
		GroupID:    gid.Hex(),
		Category:   category,
		Categories: models.MediaCategories,
		Items:      items,
	})
}
