package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/repo"
)

func strp(s string) *string { return &s }

func TestAcademicService_CoursesAndClasses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)
	tutor := env.user(t, "tom", models.RoleTutor)
	student := env.user(t, "sam", models.RoleStudent)

	_, err := env.academics.CreateCourse(ctx, ActorOf(admin), CourseInput{Title: strp("No code")})
	assert.ErrorIs(t, err, ErrValidation)

	course, err := env.academics.CreateCourse(ctx, ActorOf(admin), CourseInput{Code: strp(" cs101 "), Title: strp("Intro")})
	require.NoError(t, err)
	assert.Equal(t, "CS101", course.Code)
	assert.Equal(t, admin.ID, course.OwnerID)

	_, err = env.academics.CreateCourse(ctx, ActorOf(admin), CourseInput{Code: strp("CS101"), Title: strp("Dup")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.academics.CreateClass(ctx, ClassInput{CourseID: &course.ID, TutorID: &student.ID, Name: strp("A")})
	assert.ErrorIs(t, err, ErrValidation)

	class, err := env.academics.CreateClass(ctx, ClassInput{CourseID: &course.ID, TutorID: &tutor.ID, Name: strp("Group A"), Schedule: strp("Mon 10:00")})
	require.NoError(t, err)
	assert.Equal(t, models.ClassActive, class.Status)

	total, _, err := env.academics.ListClasses(ctx, repo.ClassFilter{TutorID: &tutor.ID}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	assert.ErrorIs(t, env.academics.DeleteCourse(ctx, course.ID), ErrConflict)

	updated, err := env.academics.UpdateClass(ctx, class.ID, ClassInput{Status: strp(models.ClassArchived)})
	require.NoError(t, err)
	assert.Equal(t, models.ClassArchived, updated.Status)
	_, err = env.academics.UpdateClass(ctx, class.ID, ClassInput{Status: strp("closed")})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, env.academics.DeleteClass(ctx, class.ID))
	require.NoError(t, env.academics.DeleteCourse(ctx, course.ID))
	_, err = env.academics.GetCourse(ctx, course.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcademicService_Enrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)
	tutor := env.user(t, "tom", models.RoleTutor)
	other := env.user(t, "tim", models.RoleTutor)
	student := env.user(t, "sam", models.RoleStudent)

	course, err := env.academics.CreateCourse(ctx, ActorOf(admin), CourseInput{Code: strp("CS1"), Title: strp("Go")})
	require.NoError(t, err)
	class, err := env.academics.CreateClass(ctx, ClassInput{CourseID: &course.ID, TutorID: &tutor.ID, Name: strp("A")})
	require.NoError(t, err)

	_, err = env.academics.Enroll(ctx, ActorOf(other), class.ID, student.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.academics.Enroll(ctx, ActorOf(tutor), class.ID, student.ID)
	require.NoError(t, err)
	assert.Contains(t, env.pusher.kinds(student.ID), NotifyEnrolled)

	_, err = env.academics.Enroll(ctx, ActorOf(admin), class.ID, student.ID)
	assert.ErrorIs(t, err, ErrConflict)

	ok, err := env.academics.CanAccessClass(ctx, ActorOf(student), class.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.academics.CanAccessClass(ctx, ActorOf(other), class.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	total, _, err := env.academics.StudentEnrollments(ctx, student.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, _, err = env.academics.ClassEnrollments(ctx, ActorOf(student), class.ID, 0, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, env.academics.Unenroll(ctx, ActorOf(tutor), class.ID, student.ID))
	assert.ErrorIs(t, env.academics.Unenroll(ctx, ActorOf(tutor), class.ID, student.ID), ErrNotFound)
}
