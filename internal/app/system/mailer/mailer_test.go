package mailer_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/mailer"
	"go.uber.org/zap"
)

func TestNew_WithoutKeyLogsOnly(t *testing.T) {
	m := mailer.New(mailer.Config{From: "noreply@example.com", FromName: "StudyHub"}, zap.NewNop())
	if _, ok := m.(*mailer.LogMailer); !ok {
		t.Fatalf("expected *LogMailer, got %T", m)
	}
	if err := m.Send(context.Background(), mailer.Email{To: "a@example.com", Subject: "x"}); err != nil {
		t.Errorf("LogMailer.Send: %v", err)
	}
}

func TestNew_WithKeyUsesSendGrid(t *testing.T) {
	m := mailer.New(mailer.Config{SendGridAPIKey: "SG.test", From: "noreply@example.com", FromName: "StudyHub"}, zap.NewNop())
	if _, ok := m.(*mailer.SendGrid); !ok {
		t.Fatalf("expected *SendGrid, got %T", m)
	}
}

func sendgridAt(url string) mailer.Mailer {
	return mailer.New(mailer.Config{
		SendGridAPIKey: "SG.test",
		From:           "noreply@example.com",
		FromName:       "StudyHub",
		Host:           url,
	}, zap.NewNop())
}

type captured struct {
	auth, path, body string
}

func sendgridStub(t *testing.T, status int) (*httptest.Server, <-chan captured) {
	t.Helper()
	reqs := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		reqs <- captured{auth: r.Header.Get("Authorization"), path: r.URL.Path, body: string(b)}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, reqs
}

func TestSendGrid_Send(t *testing.T) {
	srv, reqs := sendgridStub(t, http.StatusAccepted)

	msg := mailer.Email{To: "a@example.com", Subject: "hi", TextBody: "x", ReplyTo: "visitor@example.com"}
	if err := sendgridAt(srv.URL).Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got := <-reqs
	if got.auth != "Bearer SG.test" || got.path != "/v3/mail/send" {
		t.Errorf("request auth=%q path=%q", got.auth, got.path)
	}
	for _, want := range []string{`"[StudyHub] hi"`, `"reply_to"`, "visitor@example.com"} {
		if !strings.Contains(got.body, want) {
			t.Errorf("request body missing %s: %s", want, got.body)
		}
	}
}

func TestSendGrid_SendRejected(t *testing.T) {
	srv, _ := sendgridStub(t, http.StatusBadRequest)
	if err := sendgridAt(srv.URL).Send(context.Background(), mailer.Email{To: "a@example.com"}); err == nil {
		t.Error("a 400 response must be returned as an error")
	}
}

func TestSendGrid_SendStopsWithContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sendgridAt(srv.URL).Send(ctx, mailer.Email{To: "a@example.com"}) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Send succeeded after its context ended")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Send kept waiting after its context ended")
	}
}

func TestBuildReminderEmail(t *testing.T) {
	e := mailer.BuildReminderEmail(mailer.ReminderEmailData{
		SiteName:     "StudyHub",
		UserName:     "Ada",
		GroupName:    "Algebra Study",
		SessionTitle: "Quadratics",
		StartsAt:     "3:30 PM",
		MeetingLink:  "https://meet.example.com/abc",
		Message:      "Reminder: Session 'Quadratics' starts at 3:30 PM",
	})

	if e.Subject != "Reminder: Quadratics at 3:30 PM" {
		t.Errorf("Subject: got %q", e.Subject)
	}
	for _, want := range []string{"Hi Ada", "Algebra Study", "https://meet.example.com/abc"} {
		if !strings.Contains(e.TextBody, want) {
			t.Errorf("TextBody missing %q", want)
		}
		if !strings.Contains(e.HTMLBody, want) {
			t.Errorf("HTMLBody missing %q", want)
		}
	}
}

func TestBuildReminderEmail_EscapesHTML(t *testing.T) {
	e := mailer.BuildReminderEmail(mailer.ReminderEmailData{
		SiteName:     "StudyHub",
		UserName:     "<script>x</script>",
		SessionTitle: "t",
		StartsAt:     "1:00 PM",
	})
	if strings.Contains(e.HTMLBody, "<script>") {
		t.Error("HTML body must escape user-supplied names")
	}
}

func TestRecorder(t *testing.T) {
	r := &mailer.Recorder{}
	_ = r.Send(context.Background(), mailer.Email{To: "a@example.com"})
	if got := r.Sent(); len(got) != 1 || got[0].To != "a@example.com" {
		t.Errorf("Sent: got %+v", got)
	}
}
