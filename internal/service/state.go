package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// StateService persists the saved map view per session in DuckDB. A nil
// database degrades to a no-op store: saves vanish, loads find nothing.
type StateService struct {
	db *sql.DB
}

// NewStateService creates the service and its backing table.
func NewStateService(db *sql.DB) (*StateService, error) {
	s := &StateService{db: db}
	if db == nil {
		return s, nil
	}
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS map_state (
			session_id VARCHAR PRIMARY KEY,
			center_lon DOUBLE NOT NULL,
			center_lat DOUBLE NOT NULL,
			zoom       INTEGER NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return nil, errors.Wrap(err, "create map_state table")
	}
	return s, nil
}

// Save upserts the view state for a session.
func (s *StateService) Save(ctx context.Context, sessionID string, state gursclient.ViewState) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO map_state (session_id, center_lon, center_lat, zoom, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			center_lon = excluded.center_lon,
			center_lat = excluded.center_lat,
			zoom       = excluded.zoom,
			updated_at = excluded.updated_at`,
		sessionID, state.CenterLon, state.CenterLat, state.Zoom, time.Now().UTC())
	return errors.Wrap(err, "save map state")
}

// Get returns the saved view state for a session, or nil when none exists.
func (s *StateService) Get(ctx context.Context, sessionID string) (*gursclient.ViewState, error) {
	if s.db == nil {
		return nil, nil
	}
	var state gursclient.ViewState
	err := s.db.QueryRowContext(ctx, `
		SELECT center_lon, center_lat, zoom FROM map_state WHERE session_id = ?`,
		sessionID).Scan(&state.CenterLon, &state.CenterLat, &state.Zoom)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load map state")
	}
	return &state, nil
}
