package cache

import "time"

// CachedTrack is a library track as stored in the snapshot cache.
type CachedTrack struct {
	ID             string    `json:"id"`             // MD5 of the audio source
	Title          string    `json:"title"`          // Track title
	Artist         string    `json:"artist"`         // Track artist
	AudioSource    string    `json:"audioSource"`    // Path or URI of the audio
	ArtworkSource  string    `json:"artworkSource"`  // Path or URI of the artwork, may be empty
	DurationMillis int64     `json:"durationMillis"` // Duration, 0 when unknown
	CreatedAt      time.Time `json:"createdAt"`      // Cache entry creation
	UpdatedAt      time.Time `json:"updatedAt"`      // Cache entry update
}

// CacheMeta holds cache metadata (schema version, last update, etc.)
type CacheMeta struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CacheStats provides statistics about the cache.
type CacheStats struct {
	TrackCount     int       `json:"trackCount"`
	ArtworkMissing int       `json:"artworkMissing"`
	SchemaVersion  string    `json:"schemaVersion"`
	LastFullBuild  time.Time `json:"lastFullBuild"`
	LastUpdated    time.Time `json:"lastUpdated"`
	IsBuilding     bool      `json:"isBuilding"`
	BuildProgress  int       `json:"buildProgress"` // 0-100
}

// Pagination defines pagination parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int // Calculated from Page and Limit
}

// NewPagination creates a new pagination with defaults.
func NewPagination(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
