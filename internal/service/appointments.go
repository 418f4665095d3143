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

type AppointmentService struct {
	Repo     *repo.GormRepo
	Events   *Events
	Notifier *NotificationService
}

// Request books an appointment with the student's personal tutor.
func (s *AppointmentService) Request(ctx context.Context, actor Actor, requestedAt time.Time, reason string) (*models.Appointment, error) {
	if !actor.IsStudent() {
		return nil, forbidden("only students can request appointments")
	}
	if requestedAt.IsZero() {
		return nil, invalid("requested_at is required")
	}
	student, err := s.Repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "student")
	}
	if student.PersonalTutorID == nil {
		return nil, invalid("no personal tutor allocated")
	}

	a := &models.Appointment{
		StudentID:   actor.ID,
		TutorID:     *student.PersonalTutorID,
		RequestedAt: requestedAt.UTC(),
		Reason:      strings.TrimSpace(reason),
		Status:      models.AppointmentPending,
	}
	if err := s.Repo.CreateAppointment(ctx, a); err != nil {
		return nil, storeErr(err, "appointment")
	}

	s.Notifier.Notify(ctx, a.TutorID, NotifyAppointmentRequest,
		fmt.Sprintf("%s requested an appointment for %s", student.FullName, a.RequestedAt.Format(time.RFC3339)))
	s.Events.Publish(ctx, mykafka.TopicMeetingEvents, a.ID.String(), "appointment_requested", map[string]any{
		"appointment_id": a.ID,
		"student_id":     a.StudentID,
		"tutor_id":       a.TutorID,
	})
	return a, nil
}

func (s *AppointmentService) List(ctx context.Context, actor Actor, offset, limit int) (int64, []models.Appointment, error) {
	var participant *uuid.UUID
	if !actor.IsAdmin() {
		participant = &actor.ID
	}
	total, items, err := s.Repo.ListAppointments(ctx, participant, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "appointments")
	}
	return total, items, nil
}

// Update applies a status change. The tutor accepts or rejects a pending request;
// the student cancels a pending or accepted one.
func (s *AppointmentService) Update(ctx context.Context, actor Actor, id uuid.UUID, status, note string) (*models.Appointment, error) {
	a, err := s.Repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeErr(err, "appointment")
	}

	var notify uuid.UUID
	switch actor.ID {
	case a.TutorID:
		if a.Status != models.AppointmentPending ||
			(status != models.AppointmentAccepted && status != models.AppointmentRejected) {
			return nil, invalid("tutor cannot change appointment from %s to %s", a.Status, status)
		}
		a.TutorNote = strings.TrimSpace(note)
		notify = a.StudentID
	case a.StudentID:
		if status != models.AppointmentCancelled ||
			(a.Status != models.AppointmentPending && a.Status != models.AppointmentAccepted) {
			return nil, invalid("student cannot change appointment from %s to %s", a.Status, status)
		}
		notify = a.TutorID
	default:
		return nil, forbidden("not an appointment participant")
	}

	if err := s.Repo.UpdateAppointment(ctx, id, status, a.TutorNote); err != nil {
		return nil, storeErr(err, "appointment")
	}
	a.Status = status

	s.Notifier.Notify(ctx, notify, NotifyAppointmentDecision, fmt.Sprintf("Appointment on %s was %s", a.RequestedAt.Format(time.RFC3339), status))
	s.Events.Publish(ctx, mykafka.TopicMeetingEvents, a.ID.String(), "appointment_"+status, map[string]any{
		"appointment_id": a.ID,
		"actor_id":       actor.ID,
	})
	return a, nil
}
