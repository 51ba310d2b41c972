// Package notify emails movie owners about scheduled and released movies.
package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"moviecat/internal/events"
	"moviecat/internal/mail"
)

const scheduledSubject = "Movie scheduled"

// Notifier consumes MovieScheduled events and mails the owner.
type Notifier struct {
	mail   mail.Sender
	logger *logrus.Logger
}

func NewNotifier(sender mail.Sender, logger *logrus.Logger) *Notifier {
	return &Notifier{mail: sender, logger: logger}
}

// HandleMovieScheduled satisfies events.Handler.
func (n *Notifier) HandleMovieScheduled(ctx context.Context, ev events.MovieScheduled) error {
	msg := mail.Message{
		To:      ev.OwnerEmail,
		Subject: scheduledSubject,
		Text:    fmt.Sprintf("The movie %q is scheduled for release on %s.", ev.Title, ev.ReleaseDate),
	}
	if err := n.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send scheduled notice for movie %s: %w", ev.MovieID, err)
	}

	n.logger.WithFields(logrus.Fields{
		"movie_id": ev.MovieID,
		"to":       ev.OwnerEmail,
	}).Info("scheduled notice sent")
	return nil
}
