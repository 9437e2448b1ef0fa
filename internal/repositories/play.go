package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
)

const playColumns = `id, sequence, session_path, row_id, title, artist, album, genre, musical_key, bpm, length,
	deck, filename, entry_start, status, started_at, scrobbled_at, created_at, updated_at, deleted_at`

var _ models.Repository[*models.Play] = (*PlayRepository)(nil)

// PlayRepository implements models.Repository[*models.Play].
type PlayRepository struct {
	db *sql.DB
}

// NewPlayRepository creates a new PlayRepository with the given database connection
func NewPlayRepository(db *sql.DB) *PlayRepository {
	return &PlayRepository{db: db}
}

// Create inserts a new [models.Play] with a generated ID and sequence
func (r *PlayRepository) Create(play *models.Play) error {
	sequence, err := NextSequence(r.db, "plays")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	play.SetID(shared.GenerateID())
	play.SetSequence(sequence)

	if err := play.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	e := play.Entry()
	query := `
		INSERT INTO plays (` + playColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		play.ID(),
		sequence,
		play.SessionPath(),
		e.Row,
		e.Title,
		e.Artist,
		e.Album,
		e.Genre,
		e.Key,
		e.BPM,
		e.Length,
		e.Deck,
		e.Filename,
		entryStart(e),
		string(play.Status()),
		play.StartedAt(),
		nullTime(play.ScrobbledAt()),
		play.CreatedAt(),
		play.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert play: %w", err)
	}

	return nil
}

// Get retrieves a play by ID, excluding soft-deleted plays
func (r *PlayRepository) Get(id string) (*models.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// FindPlaying returns the newest play still in the playing state for the entry identified by key.
func (r *PlayRepository) FindPlaying(sessionPath string, key models.EntryKey) (*models.Play, error) {
	query := `
		SELECT ` + playColumns + `
		FROM plays
		WHERE session_path = ? AND row_id = ? AND title = ? AND artist = ? AND filename = ? AND entry_start = ?
			AND status = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query,
		sessionPath, key.Row, key.Title, key.Artist, key.Filename, key.Start, string(models.PlayStatusPlaying)))
}

// Update writes the status and entry fields of an existing play
func (r *PlayRepository) Update(play *models.Play) error {
	if err := play.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	play.SetUpdatedAt(now)

	e := play.Entry()
	query := `
		UPDATE plays
		SET title = ?, artist = ?, album = ?, genre = ?, musical_key = ?, bpm = ?, length = ?, deck = ?,
			status = ?, scrobbled_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		e.Title,
		e.Artist,
		e.Album,
		e.Genre,
		e.Key,
		e.BPM,
		e.Length,
		e.Deck,
		string(play.Status()),
		nullTime(play.ScrobbledAt()),
		now,
		play.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update play: %w", err)
	}

	return expectAffected(result, "play", play.ID())
}

// Delete soft-deletes a play by ID
func (r *PlayRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE plays SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete play: %w", err)
	}
	return expectAffected(result, "play", id)
}

// List retrieves plays matching criteria, newest first, excluding soft-deleted plays.
//
// Recognized criteria: "status" (string or [models.PlayStatus]), "session_path" (string), "limit" (int).
func (r *PlayRepository) List(criteria map[string]any) ([]*models.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE deleted_at IS NULL`
	args := []any{}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	case models.PlayStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	}

	if path, ok := criteria["session_path"].(string); ok && path != "" {
		query += " AND session_path = ?"
		args = append(args, path)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []*models.Play
	for rows.Next() {
		play, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		plays = append(plays, play)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return plays, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanOne scans a single [sql.Row] into a [models.Play]
func (r *PlayRepository) scanOne(row *sql.Row) (*models.Play, error) {
	play, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: play", shared.ErrNotFound)
	}
	return play, err
}

func (r *PlayRepository) scan(row scanner) (*models.Play, error) {
	var (
		id, sessionPath, status                 string
		sequence, bpm, length, deck             int
		rowID                                   uint32
		title, artist, album, genre, key, fname string
		entryStart                              int64
		startedAt, createdAt, updatedAt         time.Time
		scrobbledAt, deletedAt                  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &sessionPath, &rowID, &title, &artist, &album, &genre, &key, &bpm, &length,
		&deck, &fname, &entryStart, &status, &startedAt, &scrobbledAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan play: %w", err)
	}

	entry := models.Entry{
		Row:      rowID,
		Title:    title,
		Artist:   artist,
		Album:    album,
		Genre:    genre,
		Key:      key,
		BPM:      bpm,
		Length:   length,
		Deck:     deck,
		Filename: fname,
	}
	if entryStart > 0 {
		entry.StartTime = time.Unix(entryStart, 0)
	}

	play := models.NewPlay(sequence, sessionPath, entry, startedAt)
	play.SetID(id)
	play.SetStatus(models.PlayStatus(status))
	play.SetCreatedAt(createdAt)
	play.SetUpdatedAt(updatedAt)
	if scrobbledAt.Valid {
		play.SetScrobbledAt(&scrobbledAt.Time)
	}
	if deletedAt.Valid {
		play.SetDeletedAt(&deletedAt.Time)
	}

	return play, nil
}

func entryStart(e models.Entry) int64 {
	return e.Identity().Start
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func expectAffected(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s or already deleted", shared.ErrNotFound, what, id)
	}
	return nil
}
