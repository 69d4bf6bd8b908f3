package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tolga/reserva/internal/model"
)

// Notifier is the notification port. The core emits events at the trigger
// points; delivery (email, SMS) is an external collaborator.
type Notifier interface {
	ReservationCreated(ctx context.Context, res *model.Reservation)
	ReservationConfirmed(ctx context.Context, res *model.Reservation)
	ReservationCancelled(ctx context.Context, res *model.Reservation)
	ReservationRejected(ctx context.Context, res *model.Reservation)
	ReminderDue(ctx context.Context, res *model.Reservation)
	NoShowDetected(ctx context.Context, res *model.Reservation)
}

// LogNotifier records events on the service log. It stands in for real
// delivery channels in development and tests.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) emit(event string, res *model.Reservation) {
	n.logger.Info().
		Str("event", event).
		Uint("reservation_id", res.ID).
		Uint("room_id", res.RoomID).
		Uint("user_id", res.UserID).
		Str("status", string(res.Status)).
		Time("start_at", res.StartAt).
		Msg("reservation event")
}

func (n *LogNotifier) ReservationCreated(_ context.Context, res *model.Reservation) {
	n.emit("reservation.created", res)
}

func (n *LogNotifier) ReservationConfirmed(_ context.Context, res *model.Reservation) {
	n.emit("reservation.confirmed", res)
}

func (n *LogNotifier) ReservationCancelled(_ context.Context, res *model.Reservation) {
	n.emit("reservation.cancelled", res)
}

func (n *LogNotifier) ReservationRejected(_ context.Context, res *model.Reservation) {
	n.emit("reservation.rejected", res)
}

func (n *LogNotifier) ReminderDue(_ context.Context, res *model.Reservation) {
	n.emit("reservation.reminder_due", res)
}

func (n *LogNotifier) NoShowDetected(_ context.Context, res *model.Reservation) {
	n.emit("reservation.no_show", res)
}
