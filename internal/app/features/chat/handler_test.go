package chat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/features/chat"
	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type env struct {
	h   *chat.Handler
	fx  *testutil.Fixtures
	ctx context.Context

	owner, member, outsider models.User
	group                   models.StudyGroup
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	logger := zap.NewNop()
	svc := content.New(content.Deps{
		DB: db, Runner: testutil.Runner(db), Files: filestore.NewMemory(1 << 20), Log: logger,
	})
	e := &env{
		h:   chat.NewHandler(db, svc, nil, 1<<20, uierrors.NewErrorLogger(logger), logger),
		fx:  testutil.NewFixtures(t, db),
		ctx: ctx,
	}
	e.owner = e.fx.CreateStudent(ctx, "Olive Owner", "owner@example.com")
	e.member = e.fx.CreateStudent(ctx, "Mia Member", "member@example.com")
	e.outsider = e.fx.CreateStudent(ctx, "Otto Outsider", "out@example.com")
	e.group = e.fx.CreateGroup(ctx, "Algebra Study", e.owner.ID)
	e.fx.AddMember(ctx, e.group.ID, e.member.ID, models.MemberRoleMember)
	return e
}

func (e *env) req(r *http.Request, u models.User) *http.Request {
	r = testutil.WithUser(r, testutil.FromModel(u))
	return testutil.WithChiURLParam(r, "id", e.group.ID.Hex())
}

func serve(fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		fn(rec, req)
	}()
	return rec
}

func jsonForm(target string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("Accept", "application/json")
	return r
}

func TestHandlePost_JSON(t *testing.T) {
	e := setup(t)

	rec := serve(e.h.HandlePost, e.req(jsonForm("/", url.Values{"content": {"hello"}}), e.member))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var v content.MessageView
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Content != "hello" || v.SenderName != "Mia Member" {
		t.Errorf("got %+v", v)
	}
}

func TestHandlePost_Rules(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name string
		user models.User
		form url.Values
		want int
	}{
		{"outsider", e.outsider, url.Values{"content": {"hi"}}, http.StatusForbidden},
		{"empty", e.member, url.Values{"content": {"   "}}, http.StatusUnprocessableEntity},
		{"member announcement", e.member, url.Values{"content": {"hi"}, "is_announcement": {"on"}}, http.StatusForbidden},
		{"owner announcement", e.owner, url.Values{"content": {"hi"}, "is_announcement": {"on"}}, http.StatusCreated},
	}
	for _, tt := range tests {
		rec := serve(e.h.HandlePost, e.req(jsonForm("/", tt.form), tt.user))
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}
}

func TestHandlePost_Multipart(t *testing.T) {
	e := setup(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("content", "notes attached")
	fw, _ := mw.CreateFormFile("media", "notes.pdf")
	_, _ = fw.Write([]byte("%PDF-1.4 test"))
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(e.h.HandlePost, e.req(r, e.member))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if n := e.fx.Count(e.ctx, "group_messages", bson.M{"media_path": bson.M{"$regex": "^group_messages/msg_.*\\.pdf$"}}); n != 1 {
		t.Errorf("messages with pdf media = %d, want 1", n)
	}
}

func TestServeSince(t *testing.T) {
	e := setup(t)
	m1 := e.fx.CreateMessage(e.ctx, e.group.ID, e.owner.ID, "one")
	e.fx.CreateMessage(e.ctx, e.group.ID, e.member.ID, "two")
	e.fx.CreateMessage(e.ctx, e.group.ID, e.owner.ID, "three")

	rec := serve(e.h.ServeSince, e.req(httptest.NewRequest(http.MethodGet, "/since?last="+m1.ID.Hex(), nil), e.member))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		NewMessages []content.MessageView `json:"new_messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.NewMessages) != 2 || out.NewMessages[0].Content != "two" || out.NewMessages[1].Content != "three" {
		t.Errorf("got %+v, want two then three", out.NewMessages)
	}

	rec = serve(e.h.ServeSince, e.req(httptest.NewRequest(http.MethodGet, "/since?last=zzz", nil), e.member))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad last: status = %d, want 400", rec.Code)
	}

	rec = serve(e.h.ServeSince, e.req(httptest.NewRequest(http.MethodGet, "/since", nil), e.outsider))
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider: status = %d, want 403", rec.Code)
	}
}

func TestHandleEditAndDelete(t *testing.T) {
	e := setup(t)
	m := e.fx.CreateMessage(e.ctx, e.group.ID, e.member.ID, "draft")

	withMsg := func(r *http.Request) *http.Request {
		return testutil.WithChiURLParam(r, "messageID", m.ID.Hex())
	}

	rec := serve(e.h.HandleEdit, withMsg(e.req(jsonForm("/", url.Values{"content": {"hijack"}}), e.owner)))
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-sender edit: status = %d, want 403", rec.Code)
	}

	rec = serve(e.h.HandleEdit, withMsg(e.req(jsonForm("/", url.Values{"content": {"final"}}), e.member)))
	if rec.Code != http.StatusOK {
		t.Fatalf("sender edit: status = %d, want 200", rec.Code)
	}
	if n := e.fx.Count(e.ctx, "group_messages", bson.M{"_id": m.ID, "content": "final", "edited_at": bson.M{"$ne": nil}}); n != 1 {
		t.Error("edit not stored")
	}

	rec = serve(e.h.HandleDelete, withMsg(e.req(jsonForm("/", url.Values{}), e.member)))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d, want 200", rec.Code)
	}
	if n := e.fx.Count(e.ctx, "group_messages", bson.M{"_id": m.ID}); n != 0 {
		t.Error("message still present")
	}
}

func TestServeSocket_DisabledWithoutHub(t *testing.T) {
	e := setup(t)
	rec := serve(e.h.ServeSocket, e.req(httptest.NewRequest(http.MethodGet, "/ws", nil), e.member))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
