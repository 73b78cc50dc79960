// internal/app/features/contact/handler.go
package contact

import (
	"fmt"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/mailer"
	"github.com/dalemusser/studyhub/internal/app/system/normalize"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Subject is the subject line of every forwarded contact message.
const Subject = "New contact form submission"

// honeypotField is hidden from people by CSS. Bots that fill every input
// fill it too.
const honeypotField = "website"

// Input is the contact form.
type Input struct {
	Name    string `form:"name" validate:"required,min=2,max=100" label:"Name"`
	Email   string `form:"email" validate:"required,emailaddr" label:"Email"`
	Message string `form:"message" validate:"required,min=10,max=1000" label:"Message"`
}

type Handler struct {
	Mail      mailer.Mailer
	Recipient string
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

// NewHandler builds the contact handler. Messages are forwarded to
// recipient.
func NewHandler(mail mailer.Mailer, recipient string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Mail: mail, Recipient: recipient, ErrLog: errLog, Log: logger}
}

type pageData struct {
	viewdata.BaseVM
	In        Input
	Sent      bool
	SendError string
	Errors    map[string]string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data pageData) {
	data.BaseVM = viewdata.NewBaseVM(r, "Contact", "/")
	templates.Render(w, r, "contact", data)
}

// ServeContact renders the form, or the thank-you note after a send.
func (h *Handler) ServeContact(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, pageData{Sent: r.URL.Query().Get("sent") == "1"})
}

func readForm(r *http.Request) Input {
	return Input{
		Name:    normalize.Name(r.PostFormValue("name")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Message: normalize.Text(r.PostFormValue("message")),
	}
}

func buildEmail(to string, in Input) mailer.Email {
	return mailer.Email{
		To:          to,
		Subject:     Subject,
		TextBody:    fmt.Sprintf("Name: %s\nEmail: %s\n\nMessage:\n%s\n", in.Name, in.Email, in.Message),
		ReplyTo:     in.Email,
		ReplyToName: in.Name,
	}
}

// HandleSubmit validates the form and forwards it by email. A filled
// honeypot gets the normal success redirect and nothing is sent.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse contact form", err, "Invalid form submission.", "/contact")
		return
	}
	if strings.TrimSpace(r.PostFormValue(honeypotField)) != "" {
		h.Log.Info("contact: honeypot filled, message dropped", zap.String("ip", r.RemoteAddr))
		http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
		return
	}

	in := readForm(r)
	if fields, ok := shared.FieldErrors(inputval.Validate(in).Err()); ok {
		w.WriteHeader(http.StatusUnprocessableEntity)
		h.render(w, r, pageData{In: in, Errors: fields})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "contact send")
	defer cancel()

	if err := h.Mail.Send(ctx, buildEmail(h.Recipient, in)); err != nil {
		h.Log.Error("contact: send failed", zap.String("from", in.Email), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
		h.render(w, r, pageData{In: in, SendError: "Something went wrong and we couldn't send your message. Please try again later."})
		return
	}

	h.Log.Info("contact message forwarded", zap.String("from", in.Email))
	http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
}
