// store/archive_store.go
package store

import (
	"context"
	"fmt"
	"log/slog"

	"portfolio/api/database"
	"portfolio/api/models"
)

// ArchiveStore appends page views to the ClickHouse page_views table. It is
// write-only; the in-memory analytics never read from it.
type ArchiveStore struct {
	DB *database.ClickHouseClient
}

func NewArchiveStore(chClient *database.ClickHouseClient) *ArchiveStore {
	return &ArchiveStore{
		DB: chClient,
	}
}

func (s *ArchiveStore) InsertPageViews(ctx context.Context, events []models.PageViewEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO page_views (
			event_id, page, visitor_key, user_agent, referrer,
			screen_resolution, timezone, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.ID,
			event.Page,
			event.VisitorKey,
			event.UserAgent,
			event.Referrer,
			event.ScreenResolution,
			event.Timezone,
			event.Timestamp,
		)
		if err != nil {
			slog.Error("error appending page view to batch", "event_id", event.ID, "error", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	slog.Debug("archived page views", "count", len(events))
	return nil
}
