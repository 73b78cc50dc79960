// Package accounts registers users, checks credentials and lets admins
// moderate student accounts.
package accounts

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/services/cascade"
	"github.com/dalemusser/studyhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	notificationstore "github.com/dalemusser/studyhub/internal/app/store/notifications"
	reminderstore "github.com/dalemusser/studyhub/internal/app/store/reminders"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/normalize"
	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"github.com/dalemusser/studyhub/internal/app/system/txn"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// MaxPasswordBytes is the longest password bcrypt will hash. Longer input
// makes bcrypt.GenerateFromPassword fail, so it is rejected as a field
// violation first.
const MaxPasswordBytes = 72

const passwordTooLong = "Password must be at most 72 bytes."

// Deps wires the account manager. BcryptCost defaults to bcrypt.DefaultCost.
type Deps struct {
	DB         *mongo.Database
	Runner     *txn.Runner
	Cascade    *cascade.Cascade
	Audit      *auditlog.Logger
	Rooms      realtime.Rooms
	Log        *zap.Logger
	BcryptCost int
}

// Service is the account manager.
type Service struct {
	runner        *txn.Runner
	cascade       *cascade.Cascade
	users         *userstore.Store
	memberships   *membershipstore.Store
	reminders     *reminderstore.Store
	notifications *notificationstore.Store
	audit         *auditlog.Logger
	rooms         realtime.Rooms
	log           *zap.Logger
	cost          int
	dummyHash     []byte
	now           func() time.Time
}

// New builds the account manager.
func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Rooms == nil {
		d.Rooms = realtime.Nop{}
	}
	if d.Cascade == nil {
		d.Cascade = cascade.New(d.DB, nil, d.Log)
	}
	if d.BcryptCost == 0 {
		d.BcryptCost = bcrypt.DefaultCost
	}
	s := &Service{
		runner:        d.Runner,
		cascade:       d.Cascade,
		users:         userstore.New(d.DB),
		memberships:   membershipstore.New(d.DB),
		reminders:     reminderstore.New(d.DB),
		notifications: notificationstore.New(d.DB),
		audit:         d.Audit,
		rooms:         d.Rooms,
		log:           d.Log,
		cost:          d.BcryptCost,
		now:           time.Now,
	}
	// Compared against when the email is unknown so both failure paths
	// cost one bcrypt comparison.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("studyhub-timing-equaliser"), d.BcryptCost)
	return s
}

// RegisterInput is the registration form.
type RegisterInput struct {
	FullName        string `form:"full_name" validate:"required,max=100" label:"Full name"`
	NationalID      string `form:"national_id" validate:"required,nationalid" label:"National ID"`
	Email           string `form:"email" validate:"required,emailaddr" label:"Email"`
	Password        string `form:"password" validate:"required,min=8" label:"Password"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=Password" label:"Password confirmation"`
	Phone           string `form:"phone" validate:"required,phone" label:"Phone"`
	Age             int    `form:"age" validate:"gte=13,lte=100" label:"Age"`
	Address         string `form:"address" validate:"required,max=255" label:"Address"`
	Town            string `form:"town" validate:"max=100" label:"Town"`
	Region          string `form:"region" validate:"max=100" label:"Region"`
	Postcode        string `form:"postcode" validate:"required,max=20" label:"Postcode"`
	Country         string `form:"country" validate:"required,max=100" label:"Country"`
}

func (in *RegisterInput) trim() {
	in.FullName = normalize.Name(in.FullName)
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.Town = strings.TrimSpace(in.Town)
	in.Region = strings.TrimSpace(in.Region)
	in.Postcode = strings.TrimSpace(in.Postcode)
	in.Country = strings.TrimSpace(in.Country)
}

// Register creates a Pending student account. Every violation, including
// an email or national ID already in use, is reported in one
// *apperr.ValidationError.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.trim()
	res := inputval.Validate(in)
	if len(in.Password) > MaxPasswordBytes {
		res.Add("password", passwordTooLong)
	}

	if inputval.IsValidEmail(in.Email) {
		taken, err := s.users.EmailExists(ctx, in.Email)
		if err != nil {
			return models.User{}, err
		}
		if taken {
			res.Add("email", "An account with this email already exists.")
		}
	}
	if res.ForField("national_id") == "" && in.NationalID != "" {
		taken, err := s.users.NationalIDExists(ctx, in.NationalID)
		if err != nil {
			return models.User{}, err
		}
		if taken {
			res.Add("national_id", "An account with this national ID already exists.")
		}
	}
	if res.HasErrors() {
		return models.User{}, res
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.users.Create(ctx, models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		NationalID:   in.NationalID,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		Status:       models.StatusPending,
		IsActive:     false,
		Profile: models.Profile{
			Phone:    in.Phone,
			Age:      in.Age,
			Address:  in.Address,
			Town:     in.Town,
			Region:   in.Region,
			Postcode: in.Postcode,
			Country:  in.Country,
		},
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		return models.User{}, apperr.Validation("email", "An account with this email already exists.")
	case errors.Is(err, userstore.ErrDuplicateNationalID):
		return models.User{}, apperr.Validation("national_id", "An account with this national ID already exists.")
	case err != nil:
		return models.User{}, err
	}
	return u, nil
}

// AuthFailure is returned by Authenticate. It always matches
// apperr.ErrAuthentication and its message never says which check failed;
// Reason and UserID are for audit logging only.
type AuthFailure struct {
	Reason string // audit.EventLoginFailed*
	UserID primitive.ObjectID
}

func (e *AuthFailure) Error() string { return apperr.ErrAuthentication.Error() }
func (e *AuthFailure) Unwrap() error { return apperr.ErrAuthentication }

// Authenticate checks an email and password. Pending and Banned accounts
// authenticate normally; what they may do afterwards is gated elsewhere.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.users.GetByEmail(ctx, normalize.Email(email))
	if errors.Is(err, mongo.ErrNoDocuments) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return models.User{}, &AuthFailure{Reason: audit.EventLoginFailedUserNotFound}
	}
	if err != nil {
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.User{}, &AuthFailure{Reason: audit.EventLoginFailedWrongPassword, UserID: u.ID}
	}
	if err := s.users.TouchLogin(ctx, u.ID, s.now()); err != nil {
		s.log.Warn("record last login", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	u.PasswordHash = ""
	return *u, nil
}

// ProfileInput holds the self-editable fields. Every signed-in user may
// edit their own profile regardless of status.
type ProfileInput struct {
	FullName string `form:"full_name" validate:"required,max=100" label:"Full name"`
	Phone    string `form:"phone" validate:"required,phone" label:"Phone"`
	Age      int    `form:"age" validate:"omitempty,gte=13,lte=100" label:"Age"`
	Address  string `form:"address" validate:"required,max=255" label:"Address"`
	Town     string `form:"town" validate:"max=100" label:"Town"`
	Region   string `form:"region" validate:"max=100" label:"Region"`
	Postcode string `form:"postcode" validate:"required,max=20" label:"Postcode"`
	Country  string `form:"country" validate:"required,max=100" label:"Country"`
}

// UpdateProfile saves the user's own profile.
func (s *Service) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) error {
	in.FullName = normalize.Name(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.Town = strings.TrimSpace(in.Town)
	in.Region = strings.TrimSpace(in.Region)
	in.Postcode = strings.TrimSpace(in.Postcode)
	in.Country = strings.TrimSpace(in.Country)
	if res := inputval.Validate(in); res.HasErrors() {
		return res
	}
	err := s.users.UpdateProfile(ctx, userID, userstore.ProfileUpdate{
		FullName: in.FullName,
		Profile: models.Profile{
			Phone:    in.Phone,
			Age:      in.Age,
			Address:  in.Address,
			Town:     in.Town,
			Region:   in.Region,
			Postcode: in.Postcode,
			Country:  in.Country,
		},
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("user")
	}
	return err
}

// ChangePassword replaces the user's password after checking the current
// one.
func (s *Service) ChangePassword(ctx context.Context, userID primitive.ObjectID, current, next, confirm string) error {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("user")
	}
	if err != nil {
		return err
	}

	ve := &apperr.ValidationError{}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		ve.Add("current_password", "Current password is incorrect.")
	}
	if len(next) < MinPasswordLen {
		ve.Add("new_password", "New password must be at least 8 characters.")
	}
	if len(next) > MaxPasswordBytes {
		ve.Add("new_password", passwordTooLong)
	}
	if next != confirm {
		ve.Add("confirm_password", "Password confirmation does not match.")
	}
	if ve.HasErrors() {
		return ve
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, userID, string(hash))
}

// Moderation actions on student accounts.
const (
	ActionApprove  = "approve"
	ActionBan      = "ban"
	ActionActivate = "activate"
)

// Moderate applies an admin action to a student account and returns the
// new status.
func (s *Service) Moderate(ctx context.Context, actor authz.Actor, studentID primitive.ObjectID, action string) (string, error) {
	if !actor.IsAdmin() || !actor.CanWrite {
		return "", apperr.Forbidden("only an admin may moderate accounts")
	}
	var status, event string
	active := true
	switch action {
	case ActionApprove:
		status, event = models.StatusActive, audit.EventStudentApproved
	case ActionActivate:
		status, event = models.StatusActive, audit.EventStudentActivated
	case ActionBan:
		status, event, active = models.StatusBanned, audit.EventStudentBanned, false
	default:
		return "", apperr.Validation("action", "Unknown action.")
	}

	u, err := s.student(ctx, studentID)
	if err != nil {
		return "", err
	}
	if err := s.users.SetStatus(ctx, u.ID, status, active); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", apperr.NotFound("student")
		}
		return "", err
	}
	s.audit.StudentModerated(ctx, actor.ID, u.ID, event, map[string]string{"from": u.Status, "to": status})
	return status, nil
}

func (s *Service) student(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("student")
	}
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleStudent {
		return nil, apperr.NotFound("student")
	}
	return u, nil
}

// DeleteStudent removes a student account together with its memberships,
// reminders and notifications. Groups left without members are deleted.
// Everything happens in one transaction.
func (s *Service) DeleteStudent(ctx context.Context, actor authz.Actor, studentID primitive.ObjectID) error {
	if !actor.IsAdmin() || !actor.CanWrite {
		return apperr.Forbidden("only an admin may delete accounts")
	}
	u, err := s.student(ctx, studentID)
	if err != nil {
		return err
	}

	var groupIDs, emptied []primitive.ObjectID
	var media []string
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		emptied, media = nil, nil
		var err error
		if groupIDs, err = s.memberships.GroupIDsForUser(ctx, u.ID); err != nil {
			return err
		}
		if _, err := s.memberships.DeleteByUser(ctx, u.ID); err != nil {
			return err
		}
		if _, err := s.reminders.DeleteByUser(ctx, u.ID, nil); err != nil {
			return err
		}
		if _, err := s.notifications.DeleteByUser(ctx, u.ID); err != nil {
			return err
		}
		for _, gid := range groupIDs {
			n, err := s.memberships.CountByGroup(ctx, gid, "")
			if err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			res, err := s.cascade.DeleteGroup(ctx, gid)
			if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
				return err
			}
			emptied = append(emptied, gid)
			media = append(media, res.MediaPaths...)
		}
		n, err := s.users.Delete(ctx, u.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return mongo.ErrNoDocuments
		}
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("student")
	}
	if err != nil {
		s.log.Error("delete student failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		return apperr.Deletion(err)
	}

	s.cascade.RemoveMedia(media)
	for _, gid := range groupIDs {
		s.rooms.DropUser(gid.Hex(), u.ID.Hex())
	}
	for _, gid := range emptied {
		s.rooms.CloseGroup(gid.Hex())
	}
	s.audit.StudentModerated(ctx, actor.ID, u.ID, audit.EventStudentDeleted, map[string]string{"email": u.Email})
	s.log.Info("student deleted",
		zap.String("user_id", u.ID.Hex()),
		zap.Int("groups_left", len(groupIDs)),
		zap.Int("groups_removed", len(emptied)))
	return nil
}

// EnsureAdmin makes sure an Active admin account exists for email. A new
// account gets a random password, which is returned so the caller can
// show it once. An existing account is promoted and activated; password is
// then "".
func (s *Service) EnsureAdmin(ctx context.Context, email, fullName string) (created bool, password string, err error) {
	email = normalize.Email(email)
	if !inputval.IsValidEmail(email) {
		return false, "", apperr.Validation("admin_email", "A valid email address is required.")
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role != models.RoleAdmin {
			if err := s.users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
				return false, "", err
			}
		}
		if !u.CanWrite() {
			if err := s.users.SetStatus(ctx, u.ID, models.StatusActive, true); err != nil {
				return false, "", err
			}
		}
		return false, "", nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return false, "", err
	}

	password, err = randomPassword()
	if err != nil {
		return false, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return false, "", err
	}
	if fullName == "" {
		fullName = "Administrator"
	}
	_, err = s.users.Create(ctx, models.User{
		FullName:     fullName,
		Email:        email,
		NationalID:   "admin-" + primitive.NewObjectID().Hex(),
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
		IsActive:     true,
	})
	if err != nil {
		return false, "", err
	}
	return true, password, nil
}

func randomPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
