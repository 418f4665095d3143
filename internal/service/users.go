package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/etutoring/internal/hash"
	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/mykafka"
	"github.com/Skotchmaster/etutoring/internal/repo"
)

const MinPasswordLength = 8

type UserService struct {
	Repo     *repo.GormRepo
	Events   *Events
	Notifier *NotificationService
	Now      func() time.Time
}

type CreateUserInput struct {
	FullName string
	Email    string
	Password string
	Role     string
}

type UpdateUserInput struct {
	FullName *string
	Email    *string
}

type Stats struct {
	UsersByRole        map[string]int64 `json:"users_by_role"`
	InactiveUsers      int64            `json:"inactive_users"`
	MessagesLast7Days  int64            `json:"messages_last_7_days"`
	UnassignedStudents int64            `json:"unassigned_students"`
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email is not valid")
	}
	return email, nil
}

func checkPassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return invalid("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// newUser validates in and hashes the password. Nothing is stored.
func (s *UserService) newUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, invalid("full_name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if !models.ValidRole(role) {
		return nil, invalid("role must be one of student, tutor, admin")
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		logging.FromContext(ctx).Error("create_user_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	return &models.User{
		FullName:     name,
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
		Active:       true,
	}, nil
}

func (s *UserService) userCreated(ctx context.Context, user *models.User) {
	s.Events.Publish(ctx, mykafka.TopicUserEvents, user.ID.String(), "user_created", map[string]any{
		"user_id": user.ID,
		"role":    user.Role,
	})
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, storeErr(err, "user with this email")
	}
	s.userCreated(ctx, user)
	return user, nil
}

func (s *UserService) RegisterAdmin(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Role = models.RoleAdmin
	return s.CreateUser(ctx, in)
}

// bootstrapMu serialises first-admin creation within this process. The repo
// re-counts admins inside the insert transaction.
var bootstrapMu sync.Mutex

// BootstrapAdmin creates the first admin account. Once any admin exists it
// fails with ErrBootstrapClosed.
func (s *UserService) BootstrapAdmin(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Role = models.RoleAdmin
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, err
	}

	bootstrapMu.Lock()
	err = s.Repo.CreateFirstAdmin(ctx, user)
	bootstrapMu.Unlock()
	if errors.Is(err, repo.ErrAdminExists) {
		logging.FromContext(ctx).Warn("bootstrap_rejected", "status", 401, "reason", "admin already exists")
		return nil, ErrBootstrapClosed
	}
	if err != nil {
		return nil, storeErr(err, "user with this email")
	}
	s.userCreated(ctx, user)
	return user, nil
}

func (s *UserService) AdminExists(ctx context.Context) (bool, error) {
	n, err := s.Repo.CountAdmins(ctx)
	if err != nil {
		return false, storeErr(err, "admins")
	}
	return n > 0, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, f repo.UserFilter, offset, limit int) (int64, []models.User, error) {
	if f.Role != "" && !models.ValidRole(f.Role) {
		return 0, nil, invalid("unknown role %q", f.Role)
	}
	total, items, err := s.Repo.ListUsers(ctx, f, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "users")
	}
	return total, items, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*models.User, error) {
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	name, email := current.FullName, current.Email
	if in.FullName != nil {
		name = strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, invalid("full_name cannot be empty")
		}
	}
	if in.Email != nil {
		if email, err = normalizeEmail(*in.Email); err != nil {
			return nil, err
		}
	}

	u, err := s.Repo.UpdateUserProfile(ctx, id, name, email)
	if err != nil {
		return nil, storeErr(err, "user with this email")
	}
	return u, nil
}

// ChangePassword also revokes every refresh token of the user.
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !hash.CheckPassword(u.PasswordHash, current) {
		return invalid("current password is incorrect")
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	pwHash, err := hash.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePasswordHash(ctx, id, pwHash); err != nil {
		return storeErr(err, "user")
	}
	if err := s.Repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		return storeErr(err, "refresh tokens")
	}
	return nil
}

func (s *UserService) SetActive(ctx context.Context, actor Actor, id uuid.UUID, active bool) (*models.User, error) {
	if !active && actor.ID == id {
		return nil, invalid("cannot deactivate your own account")
	}
	if err := s.Repo.SetUserActive(ctx, id, active); err != nil {
		return nil, storeErr(err, "user")
	}
	typ := "user_activated"
	if !active {
		typ = "user_deactivated"
		if err := s.Repo.RevokeUserRefreshTokens(ctx, id); err != nil {
			return nil, storeErr(err, "refresh tokens")
		}
	}
	s.Events.Publish(ctx, mykafka.TopicUserEvents, id.String(), typ, map[string]any{
		"user_id":  id,
		"actor_id": actor.ID,
	})
	return s.GetUser(ctx, id)
}

func (s *UserService) LoginHistory(ctx context.Context, id uuid.UUID, offset, limit int) (int64, []models.LoginHistory, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return 0, nil, err
	}
	total, items, err := s.Repo.ListLogins(ctx, id, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "login history")
	}
	return total, items, nil
}

func (s *UserService) userWithRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s %w", role, ErrNotFound)
		}
		return nil, storeErr(err, role)
	}
	if u.Role != role {
		return nil, fmt.Errorf("%s %w", role, ErrNotFound)
	}
	return u, nil
}

// Allocate sets tutorID as the personal tutor of every listed student.
func (s *UserService) Allocate(ctx context.Context, tutorID uuid.UUID, studentIDs []uuid.UUID) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, invalid("student_ids must not be empty")
	}
	tutor, err := s.userWithRole(ctx, tutorID, models.RoleTutor)
	if err != nil {
		return 0, invalid("tutor_id does not reference a tutor")
	}
	if !tutor.Active {
		return 0, invalid("tutor account is deactivated")
	}

	seen := make(map[uuid.UUID]struct{}, len(studentIDs))
	ids := make([]uuid.UUID, 0, len(studentIDs))
	for _, id := range studentIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.userWithRole(ctx, id, models.RoleStudent); err != nil {
			return 0, invalid("%s is not a student", id)
		}
		ids = append(ids, id)
	}

	n, err := s.Repo.AssignTutor(ctx, tutorID, ids)
	if err != nil {
		return 0, storeErr(err, "allocation")
	}

	for _, id := range ids {
		s.Notifier.Notify(ctx, id, NotifyTutorAllocated, fmt.Sprintf("%s is now your personal tutor", tutor.FullName))
	}
	s.Notifier.Notify(ctx, tutorID, NotifyStudentAllocated, fmt.Sprintf("%d student(s) were allocated to you", n))
	s.Events.Publish(ctx, mykafka.TopicUserEvents, tutorID.String(), "tutor_allocated", map[string]any{
		"tutor_id":    tutorID,
		"student_ids": ids,
	})
	return n, nil
}

func (s *UserService) Unallocate(ctx context.Context, studentID uuid.UUID) error {
	if err := s.Repo.UnassignTutor(ctx, studentID); err != nil {
		return storeErr(err, "student")
	}
	s.Events.Publish(ctx, mykafka.TopicUserEvents, studentID.String(), "tutor_unallocated", map[string]any{
		"student_id": studentID,
	})
	return nil
}

func (s *UserService) TutorStudents(ctx context.Context, tutorID uuid.UUID, offset, limit int) (int64, []models.User, error) {
	if _, err := s.userWithRole(ctx, tutorID, models.RoleTutor); err != nil {
		return 0, nil, err
	}
	total, items, err := s.Repo.ListStudentsOfTutor(ctx, tutorID, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "students")
	}
	return total, items, nil
}

func (s *UserService) StudentTutor(ctx context.Context, studentID uuid.UUID) (*models.User, error) {
	student, err := s.userWithRole(ctx, studentID, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	if student.PersonalTutorID == nil {
		return nil, fmt.Errorf("personal tutor %w", ErrNotFound)
	}
	return s.GetUser(ctx, *student.PersonalTutorID)
}

func (s *UserService) UnassignedStudents(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	total, items, err := s.Repo.ListUnassignedStudents(ctx, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "students")
	}
	return total, items, nil
}

func (s *UserService) Stats(ctx context.Context) (*Stats, error) {
	byRole, err := s.Repo.CountUsersByRole(ctx)
	if err != nil {
		return nil, storeErr(err, "stats")
	}
	inactive, err := s.Repo.CountInactiveUsers(ctx)
	if err != nil {
		return nil, storeErr(err, "stats")
	}
	recent, err := s.Repo.CountMessagesSince(ctx, s.now().Add(-7*24*time.Hour))
	if err != nil {
		return nil, storeErr(err, "stats")
	}
	unassigned, err := s.Repo.CountUnassignedStudents(ctx)
	if err != nil {
		return nil, storeErr(err, "stats")
	}
	return &Stats{
		UsersByRole:        byRole,
		InactiveUsers:      inactive,
		MessagesLast7Days:  recent,
		UnassignedStudents: unassigned,
	}, nil
}
