// Package reminders delivers session reminders as in-app notifications
// and optional e-mail.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	notificationstore "github.com/dalemusser/studyhub/internal/app/store/notifications"
	reminderstore "github.com/dalemusser/studyhub/internal/app/store/reminders"
	studysessionstore "github.com/dalemusser/studyhub/internal/app/store/studysessions"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/mailer"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultWindow is how far ahead of a session reminders go out.
const DefaultWindow = time.Hour

// Deps wires the dispatcher. Mailer is optional.
type Deps struct {
	DB       *mongo.Database
	Mailer   mailer.Mailer
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Window   time.Duration
	Location *time.Location // zone used to render start times; UTC when nil
	SiteName string
}

// Dispatcher turns due reminders into notifications.
type Dispatcher struct {
	reminders     *reminderstore.Store
	sessions      *studysessionstore.Store
	notifications *notificationstore.Store
	users         *userstore.Store
	groups        *groupstore.Store
	mail          mailer.Mailer
	metrics       *metrics.Metrics
	log           *zap.Logger
	window        time.Duration
	loc           *time.Location
	site          string
}

// Result summarises one dispatch run.
type Result struct {
	Sent      int // notifications created
	Duplicate int // notification already existed; reminder marked sent
	Skipped   int // session or user gone
	Failed    int
}

// New builds a Dispatcher.
func New(d Deps) *Dispatcher {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Window <= 0 {
		d.Window = DefaultWindow
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &Dispatcher{
		reminders:     reminderstore.New(d.DB),
		sessions:      studysessionstore.New(d.DB),
		notifications: notificationstore.New(d.DB),
		users:         userstore.New(d.DB),
		groups:        groupstore.New(d.DB),
		mail:          d.Mailer,
		metrics:       d.Metrics,
		log:           d.Log,
		window:        d.Window,
		loc:           d.Location,
		site:          d.SiteName,
	}
}

// Message is the notification text for a session.
func Message(title string, startsAt time.Time, loc *time.Location) string {
	return fmt.Sprintf("Reminder: Session '%s' starts at %s", title, startsAt.In(loc).Format("3:04 PM"))
}

// Run delivers every enabled, unsent reminder whose session starts within
// the window after now. Running it again for the same reminders creates no
// further notifications.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (Result, error) {
	var res Result
	due, err := d.reminders.Due(ctx, now, d.window)
	if err != nil {
		return res, fmt.Errorf("load due reminders: %w", err)
	}

	for _, rm := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		outcome, err := d.deliver(ctx, rm, now)
		if err != nil {
			res.Failed++
			d.log.Warn("reminder dispatch failed",
				zap.String("reminder_id", rm.ID.Hex()),
				zap.Error(err))
			continue
		}
		switch outcome {
		case outcomeSent:
			res.Sent++
		case outcomeDuplicate:
			res.Duplicate++
		case outcomeSkipped:
			res.Skipped++
		}
	}

	d.metrics.Reminder("sent", res.Sent)
	d.metrics.Reminder("duplicate", res.Duplicate)
	d.metrics.Reminder("failed", res.Failed)
	return res, nil
}

// DispatchDue adapts Run to the background job interface.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) (sent, skipped int, err error) {
	res, err := d.Run(ctx, now)
	return res.Sent, res.Duplicate + res.Skipped, err
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeDuplicate
	outcomeSkipped
)

func (d *Dispatcher) deliver(ctx context.Context, rm models.SessionReminder, now time.Time) (outcome, error) {
	ss, err := d.sessions.GetByID(ctx, rm.SessionID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		_, err = d.reminders.MarkSent(ctx, rm.ID, now)
		return outcomeSkipped, err
	}
	if err != nil {
		return 0, err
	}
	user, err := d.users.GetByID(ctx, rm.UserID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		_, err = d.reminders.MarkSent(ctx, rm.ID, now)
		return outcomeSkipped, err
	}
	if err != nil {
		return 0, err
	}

	msg := Message(ss.Title, ss.StartsAt, d.loc)
	gid := ss.GroupID
	result := outcomeSent
	_, err = d.notifications.Insert(ctx, models.Notification{
		UserID:    rm.UserID,
		GroupID:   &gid,
		Message:   msg,
		SourceKey: "reminder:" + rm.ID.Hex(),
		CreatedAt: now.UTC(),
	})
	switch {
	case errors.Is(err, notificationstore.ErrDuplicateSource):
		result = outcomeDuplicate
	case err != nil:
		return 0, err
	default:
		d.email(ctx, *user, ss, msg)
	}

	if _, err := d.reminders.MarkSent(ctx, rm.ID, now); err != nil {
		return 0, err
	}
	return result, nil
}

// email is best-effort; the in-app notification is the record of delivery.
func (d *Dispatcher) email(ctx context.Context, user models.User, ss models.StudySession, msg string) {
	if d.mail == nil || user.Email == "" {
		return
	}
	var groupName string
	if g, err := d.groups.GetByID(ctx, ss.GroupID); err == nil {
		groupName = g.Name
	}
	e := mailer.BuildReminderEmail(mailer.ReminderEmailData{
		SiteName:     d.site,
		UserName:     user.FullName,
		GroupName:    groupName,
		SessionTitle: ss.Title,
		StartsAt:     ss.StartsAt.In(d.loc).Format("3:04 PM"),
		MeetingLink:  ss.MeetingLink,
		Message:      msg,
	})
	e.To = user.Email
	e.ToName = user.FullName
	if err := d.mail.Send(ctx, e); err != nil {
		d.log.Warn("reminder email failed",
			zap.String("user_id", user.ID.Hex()),
			zap.Error(err))
	}
}
