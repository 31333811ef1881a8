package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DAO provides data access operations for the cache.
type DAO struct {
	db *DB
}

// NewDAO creates a new DAO instance.
func NewDAO(db *DB) *DAO {
	return &DAO{db: db}
}

const trackColumns = `id, title, artist, audio_source, artwork_source, duration_ms, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(s rowScanner) (*CachedTrack, error) {
	track := &CachedTrack{}
	var artwork, createdAt, updatedAt sql.NullString

	err := s.Scan(
		&track.ID, &track.Title, &track.Artist, &track.AudioSource, &artwork,
		&track.DurationMillis, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if artwork.Valid {
		track.ArtworkSource = artwork.String
	}
	if createdAt.Valid {
		track.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
	}
	if updatedAt.Valid {
		track.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
	}
	return track, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- Track Operations ---

func insertTrack(e execer, track *CachedTrack, now string) error {
	_, err := e.Exec(`
		INSERT INTO tracks (id, title, artist, audio_source, artwork_source, duration_ms,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, artist = excluded.artist, audio_source = excluded.audio_source,
			artwork_source = excluded.artwork_source, duration_ms = excluded.duration_ms,
			updated_at = excluded.updated_at
	`,
		track.ID, track.Title, track.Artist, track.AudioSource, nullable(track.ArtworkSource),
		track.DurationMillis, now, now,
	)
	return err
}

// ReplaceTracks swaps the whole cached snapshot for tracks in one transaction.
// Readers see either the old snapshot or the new one.
func (dao *DAO) ReplaceTracks(tracks []*CachedTrack) error {
	tx, err := dao.db.BeginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tracks"); err != nil {
		return fmt.Errorf("failed to clear tracks: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	for _, track := range tracks {
		if err := insertTrack(tx, track, now); err != nil {
			return fmt.Errorf("failed to insert track %s: %w", track.ID, err)
		}
	}

	if err := writeMeta(tx, metaLastUpdated, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tracks: %w", err)
	}

	log.Debug().Int("tracks", len(tracks)).Msg("Cache snapshot replaced")
	return nil
}

// GetTrack retrieves a track by ID. It returns nil, nil when absent.
func (dao *DAO) GetTrack(id string) (*CachedTrack, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, ErrNotOpen
	}

	track, err := scanTrack(db.QueryRow("SELECT "+trackColumns+" FROM tracks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return track, err
}

// ListTracks returns every cached track ordered by artist then title.
func (dao *DAO) ListTracks() ([]*CachedTrack, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, ErrNotOpen
	}

	rows, err := db.Query("SELECT " + trackColumns + " FROM tracks ORDER BY artist COLLATE NOCASE, title COLLATE NOCASE, audio_source")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*CachedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// QueryTracks searches title and artist and returns one page plus the total
// number of matches.
func (dao *DAO) QueryTracks(query string, pag Pagination) ([]*CachedTrack, int, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, 0, ErrNotOpen
	}

	var conditions []string
	var args []any

	if query != "" {
		conditions = append(conditions, "(title LIKE ? COLLATE NOCASE OR artist LIKE ? COLLATE NOCASE)")
		searchTerm := "%" + query + "%"
		args = append(args, searchTerm, searchTerm)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM tracks "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`
		SELECT %s FROM tracks %s
		ORDER BY artist COLLATE NOCASE, title COLLATE NOCASE, audio_source
		LIMIT ? OFFSET ?
	`, trackColumns, whereClause)

	args = append(args, pag.Limit, pag.Offset)
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tracks []*CachedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, 0, err
		}
		tracks = append(tracks, track)
	}
	return tracks, total, rows.Err()
}

// LogCacheStats logs cache statistics.
func (dao *DAO) LogCacheStats() {
	stats, err := dao.db.GetStats()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to get cache stats")
		return
	}

	log.Info().
		Int("tracks", stats.TrackCount).
		Int("artworkMissing", stats.ArtworkMissing).
		Str("schema", stats.SchemaVersion).
		Msg("Cache statistics")
}
