// Package audit records granted authorizations.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Biasolis/sso/internal/events"
	"github.com/Biasolis/sso/internal/logging"
	"github.com/Biasolis/sso/internal/models"
)

type Grant struct {
	UserID   string    `json:"user_id"`
	ClientID string    `json:"client_id"`
	Scopes   []string  `json:"scopes"`
	At       time.Time `json:"@timestamp"`
}

type AccessLogStore interface {
	AppendAccessLog(ctx context.Context, entry *models.AccessLog) error
}

type Indexer interface {
	IndexGrant(ctx context.Context, g Grant) error
}

// Recorder writes the access log row and then notifies the optional sinks.
// Only the row is required; sink failures are logged.
type Recorder struct {
	Store  AccessLogStore
	Events events.Publisher
	Index  Indexer
	Now    func() time.Time
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Recorder) RecordGrant(ctx context.Context, userID uuid.UUID, clientID string, scopes []string) error {
	at := r.now()
	entry := &models.AccessLog{UserID: userID, ClientID: clientID, CreatedAt: at}
	if err := r.Store.AppendAccessLog(ctx, entry); err != nil {
		return fmt.Errorf("append access log: %w", err)
	}

	l := logging.FromContext(ctx).With("svc", "audit", "user_id", userID.String(), "client_id", clientID)
	var g errgroup.Group
	if r.Events != nil {
		g.Go(func() error {
			err := r.Events.PublishEvent(ctx, userID.String(), events.Event{
				Type:     events.TypeGrantIssued,
				UserID:   userID.String(),
				ClientID: clientID,
				Scopes:   scopes,
				At:       at,
			})
			if err != nil {
				l.Warn("audit_event_failed", "error", err)
			}
			return nil
		})
	}
	if r.Index != nil {
		g.Go(func() error {
			err := r.Index.IndexGrant(ctx, Grant{UserID: userID.String(), ClientID: clientID, Scopes: scopes, At: at})
			if err != nil {
				l.Warn("audit_index_failed", "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	l.Info("grant_recorded")
	return nil
}
