// internal/app/features/chat/messages.go
package chat

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
)

// multipartOverhead is the allowance for form fields on top of the
// attachment limit.
const multipartOverhead = 1 << 20

func isChecked(v string) bool { return v == "on" || v == "true" || v == "1" }

// parseForm reads a urlencoded or multipart body and returns the optional
// "media" attachment. The caller closes the returned file.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (*content.Upload, io.Closer, error) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 10); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, err
		}
		if err := r.ParseForm(); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}
	f, fh, err := r.FormFile("media")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return upload(f, fh), f, nil
}

func upload(f multipart.File, fh *multipart.FileHeader) *content.Upload {
	if fh.Size == 0 && fh.Filename == "" {
		return nil
	}
	return &content.Upload{Filename: fh.Filename, Body: f}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, v content.MessageView, groupHex string) {
	if shared.WantsJSON(r) {
		uierrors.WriteJSON(w, status, v)
		return
	}
	shared.SeeOther(w, r, "/groups/"+groupHex+"#chat")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error, back string) {
	if shared.WantsJSON(r) {
		h.ErrLog.JSONError(w, r, op, err)
		return
	}
	h.ErrLog.HandleServiceError(w, r, op, err, back)
}

// HandlePost handles POST /groups/{id}/messages.
func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, "post message", err, "/groups")
		return
	}
	back := "/groups/" + gid.Hex()

	up, closer, err := h.parseForm(w, r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse message form failed", err, "The message or attachment could not be read.", back)
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	v, err := h.Content.PostMessage(ctx, actor, gid, content.MessageInput{
		Content:        r.FormValue("content"),
		IsAnnouncement: isChecked(r.FormValue("is_announcement")),
		Media:          up,
	})
	if err != nil {
		h.fail(w, r, "post message", err, back)
		return
	}
	h.respond(w, r, http.StatusCreated, v, gid.Hex())
}

// HandleEdit handles POST /groups/{id}/messages/{messageID}/edit.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, "edit message", err, "/groups")
		return
	}
	back := "/groups/" + gid.Hex()
	mid, err := shared.IDParam(r, "messageID")
	if err != nil {
		h.fail(w, r, "edit message", err, back)
		return
	}

	up, closer, err := h.parseForm(w, r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse message form failed", err, "The message or attachment could not be read.", back)
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	edit := content.MessageEdit{
		Media:       up,
		RemoveMedia: isChecked(r.FormValue("remove_media")),
	}
	if _, present := r.Form["content"]; present {
		c := r.FormValue("content")
		edit.Content = &c
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	v, err := h.Content.EditMessage(ctx, actor, mid, edit)
	if err != nil {
		h.fail(w, r, "edit message", err, back)
		return
	}
	h.respond(w, r, http.StatusOK, v, gid.Hex())
}

// HandleDelete handles POST /groups/{id}/messages/{messageID}/delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, "delete message", err, "/groups")
		return
	}
	back := "/groups/" + gid.Hex()
	mid, err := shared.IDParam(r, "messageID")
	if err != nil {
		h.fail(w, r, "delete message", err, back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Content.DeleteMessage(ctx, actor, mid); err != nil {
		h.fail(w, r, "delete message", err, back)
		return
	}
	if shared.WantsJSON(r) {
		uierrors.WriteJSON(w, http.StatusOK, map[string]string{"deleted": mid.Hex()})
		return
	}
	shared.SeeOther(w, r, back+"#chat")
}
