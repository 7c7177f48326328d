// Package leaderboard ranks score records and keeps a live view over a
// score store.
package leaderboard

import (
	"slices"
	"strings"
	"time"

	"popquiz-service/internal/domain"
)

// OwnerSelf is the owner label shown on the viewer's own entries.
const OwnerSelf = "You"

const ownerPrefixLen = 6

// Rank orders records by percentage descending, then earliest timestamp,
// then ID. The input is not modified.
func Rank(records []domain.ScoreRecord) []domain.ScoreRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b domain.ScoreRecord) int {
		if a.Percentage != b.Percentage {
			return b.Percentage - a.Percentage
		}
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Build ranks records into a leaderboard as seen by viewerID, which may be
// empty for anonymous viewers.
func Build(records []domain.ScoreRecord, viewerID string, now time.Time) domain.Leaderboard {
	ranked := Rank(records)
	entries := make([]domain.LeaderboardEntry, len(ranked))
	for i, rec := range ranked {
		entries[i] = domain.LeaderboardEntry{
			Rank:        i + 1,
			ScoreRecord: rec,
			Owner:       ownerLabel(rec.UserID, viewerID),
		}
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: now}
}

func ownerLabel(userID, viewerID string) string {
	if viewerID != "" && userID == viewerID {
		return OwnerSelf
	}
	if len(userID) > ownerPrefixLen {
		return userID[:ownerPrefixLen]
	}
	return userID
}
