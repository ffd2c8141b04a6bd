package types

import "time"

// DisplayFormat renders timestamps for humans (local time).
const DisplayFormat = "02/01/2006 15:04:05"

// CollectionStats is a possibly stale snapshot of one collection.
// Count is estimated on the document engine.
type CollectionStats struct {
	Name              string     `json:"name"`
	Count             uint64     `json:"count"`
	LatestMt          *time.Time `json:"latestMt,omitempty"`
	LatestMtFormatted *string    `json:"latestMtFormatted,omitempty"`
}

// NewCollectionStats builds stats for a collection. latest may be nil when
// the collection does not track modification times.
func NewCollectionStats(name string, count uint64, latest *time.Time) CollectionStats {
	s := CollectionStats{Name: name, Count: count}
	if latest != nil {
		t := latest.UTC()
		f := FormatDisplay(t)
		s.LatestMt = &t
		s.LatestMtFormatted = &f
	}
	return s
}

// ParseModifiedTime parses a modification time field value. It returns nil
// for anything that is not an RFC 3339 string.
func ParseModifiedTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// FormatDisplay formats t in local time using DisplayFormat.
func FormatDisplay(t time.Time) string {
	return t.Local().Format(DisplayFormat)
}

// BackupManifest describes a completed backup. Its presence on disk marks the
// per-collection files next to it as complete.
type BackupManifest struct {
	Timestamp          time.Time         `json:"timestamp"`
	TimestampFormatted string            `json:"timestampFormatted"`
	Stats              []CollectionStats `json:"stats"`
}

// NewBackupManifest stamps stats with the current time.
func NewBackupManifest(now time.Time, stats []CollectionStats) BackupManifest {
	if stats == nil {
		stats = []CollectionStats{}
	}
	now = now.UTC()
	return BackupManifest{
		Timestamp:          now,
		TimestampFormatted: FormatDisplay(now),
		Stats:              stats,
	}
}
