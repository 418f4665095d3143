package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/mykafka"
	"github.com/Skotchmaster/etutoring/internal/repo"
)

type MeetingService struct {
	Repo     *repo.GormRepo
	Events   *Events
	Notifier *NotificationService
}

type MeetingInput struct {
	Title       string
	Description string
	TutorID     *uuid.UUID
	StudentID   *uuid.UUID
	StartAt     time.Time
	EndAt       time.Time
	Mode        string
	Location    string
}

// Create schedules a meeting. Non-admin callers may only meet their allocated tutor or student.
func (s *MeetingService) Create(ctx context.Context, actor Actor, in MeetingInput) (*models.Meeting, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if in.StartAt.IsZero() || !in.EndAt.After(in.StartAt) {
		return nil, invalid("end_at must be after start_at")
	}
	if in.Mode == "" {
		in.Mode = models.MeetingOnline
	}
	if in.Mode != models.MeetingOnline && in.Mode != models.MeetingInPerson {
		return nil, invalid("mode must be online or in_person")
	}

	var tutorID, studentID uuid.UUID
	switch {
	case actor.IsTutor():
		if in.StudentID == nil {
			return nil, invalid("student_id is required")
		}
		tutorID, studentID = actor.ID, *in.StudentID
	case actor.IsStudent():
		if in.TutorID == nil {
			return nil, invalid("tutor_id is required")
		}
		tutorID, studentID = *in.TutorID, actor.ID
	case actor.IsAdmin():
		if in.TutorID == nil || in.StudentID == nil {
			return nil, invalid("tutor_id and student_id are required")
		}
		tutorID, studentID = *in.TutorID, *in.StudentID
	default:
		return nil, forbidden("insufficient role")
	}

	student, err := s.Repo.GetUserByID(ctx, studentID)
	if err != nil || student.Role != models.RoleStudent {
		return nil, invalid("student_id does not reference a student")
	}
	tutor, err := s.Repo.GetUserByID(ctx, tutorID)
	if err != nil || tutor.Role != models.RoleTutor {
		return nil, invalid("tutor_id does not reference a tutor")
	}
	if !actor.IsAdmin() && (student.PersonalTutorID == nil || *student.PersonalTutorID != tutorID) {
		return nil, forbidden("meetings are limited to your allocated tutor or students")
	}

	m := &models.Meeting{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		TutorID:     tutorID,
		StudentID:   studentID,
		StartAt:     in.StartAt.UTC(),
		EndAt:       in.EndAt.UTC(),
		Mode:        in.Mode,
		Location:    strings.TrimSpace(in.Location),
		Status:      models.MeetingScheduled,
		CreatedBy:   actor.ID,
	}
	if err := s.Repo.CreateMeeting(ctx, m); err != nil {
		return nil, storeErr(err, "meeting")
	}

	text := fmt.Sprintf("Meeting %q scheduled for %s", m.Title, m.StartAt.Format(time.RFC3339))
	for _, id := range []uuid.UUID{tutorID, studentID} {
		if id != actor.ID {
			s.Notifier.Notify(ctx, id, NotifyMeetingScheduled, text)
		}
	}
	s.Events.Publish(ctx, mykafka.TopicMeetingEvents, m.ID.String(), "meeting_scheduled", map[string]any{
		"meeting_id": m.ID,
		"tutor_id":   tutorID,
		"student_id": studentID,
		"start_at":   m.StartAt,
	})
	return m, nil
}

func (s *MeetingService) List(ctx context.Context, actor Actor, offset, limit int) (int64, []models.Meeting, error) {
	var participant *uuid.UUID
	if !actor.IsAdmin() {
		participant = &actor.ID
	}
	total, items, err := s.Repo.ListMeetings(ctx, participant, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "meetings")
	}
	return total, items, nil
}

func (s *MeetingService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Meeting, error) {
	m, err := s.Repo.GetMeeting(ctx, id)
	if err != nil {
		return nil, storeErr(err, "meeting")
	}
	if !actor.IsAdmin() && !m.HasParticipant(actor.ID) {
		return nil, forbidden("not a meeting participant")
	}
	return m, nil
}

func meetingTransitionAllowed(from, to string) bool {
	return from == models.MeetingScheduled && (to == models.MeetingCompleted || to == models.MeetingCancelled)
}

func (s *MeetingService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*models.Meeting, error) {
	m, err := s.Repo.GetMeeting(ctx, id)
	if err != nil {
		return nil, storeErr(err, "meeting")
	}
	if !actor.IsAdmin() && m.TutorID != actor.ID {
		return nil, forbidden("only the meeting tutor can change its status")
	}
	if !meetingTransitionAllowed(m.Status, status) {
		return nil, invalid("cannot change meeting status from %s to %s", m.Status, status)
	}
	if err := s.Repo.UpdateMeetingStatus(ctx, id, status); err != nil {
		return nil, storeErr(err, "meeting")
	}
	m.Status = status

	text := fmt.Sprintf("Meeting %q is now %s", m.Title, status)
	for _, uid := range []uuid.UUID{m.TutorID, m.StudentID} {
		if uid != actor.ID {
			s.Notifier.Notify(ctx, uid, NotifyMeetingStatus, text)
		}
	}
	s.Events.Publish(ctx, mykafka.TopicMeetingEvents, m.ID.String(), "meeting_"+status, map[string]any{
		"meeting_id": m.ID,
		"actor_id":   actor.ID,
	})
	return m, nil
}

func (s *MeetingService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	m, err := s.Repo.GetMeeting(ctx, id)
	if err != nil {
		return storeErr(err, "meeting")
	}
	if !actor.IsAdmin() && m.CreatedBy != actor.ID {
		return forbidden("only the creator can delete a meeting")
	}
	if err := s.Repo.DeleteMeeting(ctx, id); err != nil {
		return storeErr(err, "meeting")
	}
	s.Events.Publish(ctx, mykafka.TopicMeetingEvents, id.String(), "meeting_deleted", map[string]any{"meeting_id": id})
	return nil
}

// CanJoin reports whether the user may join the meeting's live room.
func (s *MeetingService) CanJoin(ctx context.Context, userID uuid.UUID, role string, meetingID uuid.UUID) (bool, error) {
	m, err := s.Repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return false, storeErr(err, "meeting")
	}
	return role == models.RoleAdmin || m.HasParticipant(userID), nil
}
