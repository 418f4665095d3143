package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/repo"
)

func TestUserService_CreateUser_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateUserInput
	}{
		{name: "missing name", in: CreateUserInput{Email: "a@uni.edu", Password: "Secret123", Role: "student"}},
		{name: "bad email", in: CreateUserInput{FullName: "A", Email: "not-an-email", Password: "Secret123", Role: "student"}},
		{name: "short password", in: CreateUserInput{FullName: "A", Email: "a@uni.edu", Password: "short", Role: "student"}},
		{name: "unknown role", in: CreateUserInput{FullName: "A", Email: "a@uni.edu", Password: "Secret123", Role: "parent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.CreateUser(ctx, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUserService_CreateUser_NormalizesAndRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.CreateUser(ctx, CreateUserInput{FullName: " Ann ", Email: " Ann@Uni.EDU ", Password: "Secret123", Role: "Tutor"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FullName)
	assert.Equal(t, "ann@uni.edu", u.Email)
	assert.Equal(t, models.RoleTutor, u.Role)
	assert.True(t, u.Active)
	assert.NotEqual(t, "Secret123", u.PasswordHash)

	_, err = env.users.CreateUser(ctx, CreateUserInput{FullName: "Other", Email: "ann@uni.edu", Password: "Secret123", Role: "student"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserService_AdminBootstrap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	exists, err := env.users.AdminExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	admin, err := env.users.RegisterAdmin(ctx, CreateUserInput{FullName: "Root", Email: "root@uni.edu", Password: "Secret123", Role: "student"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	exists, err = env.users.AdminExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserService_BootstrapAdminOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		closed  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.users.BootstrapAdmin(ctx, CreateUserInput{
				FullName: "Root",
				Email:    fmt.Sprintf("root%d@uni.edu", i),
				Password: "Secret123",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrBootstrapClosed):
				closed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, callers-1, closed)

	n, err := env.repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserService_UpdateAndPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "ann", models.RoleStudent)
	env.user(t, "bob", models.RoleStudent)

	name := "Ann Lee"
	got, err := env.users.UpdateUser(ctx, u.ID, UpdateUserInput{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", got.FullName)
	assert.Equal(t, "ann@uni.edu", got.Email)

	taken := "bob@uni.edu"
	_, err = env.users.UpdateUser(ctx, u.ID, UpdateUserInput{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	assert.ErrorIs(t, env.users.ChangePassword(ctx, u.ID, "wrong", "NewSecret1"), ErrValidation)
	assert.ErrorIs(t, env.users.ChangePassword(ctx, u.ID, "Secret123", "short"), ErrValidation)

	login, err := env.auth.Login(ctx, LoginInput{Email: "ann@uni.edu", Password: "Secret123"})
	require.NoError(t, err)
	require.NoError(t, env.users.ChangePassword(ctx, u.ID, "Secret123", "NewSecret1"))

	_, err = env.auth.Login(ctx, LoginInput{Email: "ann@uni.edu", Password: "NewSecret1"})
	require.NoError(t, err)
	_, err = env.auth.Refresh(ctx, login.RefreshToken, "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestUserService_SetActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)
	u := env.user(t, "ann", models.RoleStudent)

	_, err := env.users.SetActive(ctx, ActorOf(admin), admin.ID, false)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := env.users.SetActive(ctx, ActorOf(admin), u.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Active)

	got, err = env.users.SetActive(ctx, ActorOf(admin), u.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Active)

	_, err = env.users.SetActive(ctx, ActorOf(admin), uuid.New(), true)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Contains(t, env.pub.types(), "user_deactivated")
	assert.Contains(t, env.pub.types(), "user_activated")

	inactive := false
	total, _, err := env.users.ListUsers(ctx, repo.UserFilter{Active: &inactive}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestUserService_Allocation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tutor := env.user(t, "tom", models.RoleTutor)
	s1 := env.user(t, "sam", models.RoleStudent)
	s2 := env.user(t, "sue", models.RoleStudent)

	_, err := env.users.Allocate(ctx, s1.ID, []uuid.UUID{s2.ID})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.users.Allocate(ctx, tutor.ID, []uuid.UUID{tutor.ID})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.users.Allocate(ctx, tutor.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)

	n, err := env.users.Allocate(ctx, tutor.ID, []uuid.UUID{s1.ID, s1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{NotifyTutorAllocated}, env.pusher.kinds(s1.ID))
	assert.Equal(t, []string{NotifyStudentAllocated}, env.pusher.kinds(tutor.ID))

	got, err := env.users.StudentTutor(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, tutor.ID, got.ID)

	_, err = env.users.StudentTutor(ctx, s2.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	total, students, err := env.users.TutorStudents(ctx, tutor.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, s1.ID, students[0].ID)

	total, _, err = env.users.UnassignedStudents(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	require.NoError(t, env.users.Unallocate(ctx, s1.ID))
	total, _, err = env.users.UnassignedStudents(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestUserService_Stats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "root", models.RoleAdmin)
	tutor := env.user(t, "tom", models.RoleTutor)
	s := env.user(t, "sam", models.RoleStudent)
	env.user(t, "sue", models.RoleStudent)
	env.allocate(t, tutor, s)

	_, err := env.messages.SendMessage(ctx, s.ID, tutor.ID, "hello")
	require.NoError(t, err)

	stats, err := env.users.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.UsersByRole[models.RoleStudent])
	assert.Equal(t, int64(1), stats.UsersByRole[models.RoleTutor])
	assert.Equal(t, int64(1), stats.MessagesLast7Days)
	assert.Equal(t, int64(1), stats.UnassignedStudents)
	assert.Equal(t, int64(0), stats.InactiveUsers)
}
