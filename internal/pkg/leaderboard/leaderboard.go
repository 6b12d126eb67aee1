package leaderboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/ecellhq/launchpad/app/repository"
	"github.com/ecellhq/launchpad/internal/pkg/cache"
)

const (
	CacheKeyLeaderboard = "leaderboard:top"
	CacheExpiration     = 30 * time.Minute
	DefaultSize         = 50
)

// Entry is one leaderboard row as served to clients
type Entry struct {
	Rank    int    `json:"rank"`
	UserID  uint   `json:"user_id"`
	Name    string `json:"name"`
	College string `json:"college,omitempty"`
	Points  int    `json:"points"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached ranking is stale
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached ranking when the interval elapsed
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateLeaderboardCache(); err != nil {
			log.Printf("Error updating leaderboard cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to rebuild the cache
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateLeaderboardCache recomputes the ranking from the database and caches it
func UpdateLeaderboardCache() error {
	users, err := repository.GetGlobalRepositories().User.TopByPoints(DefaultSize)
	if err != nil {
		log.Printf("Error loading leaderboard from database: %v", err)
		return err
	}

	entries := make([]Entry, 0, len(users))
	for i, u := range users {
		entries = append(entries, Entry{
			Rank:    i + 1,
			UserID:  u.ID,
			Name:    u.Name,
			College: u.College,
			Points:  u.Points,
		})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	if err := cache.Set(CacheKeyLeaderboard, string(data), CacheExpiration); err != nil {
		log.Printf("Error caching leaderboard: %v", err)
		return err
	}

	return nil
}

// GetLeaderboard returns the cached ranking, refreshing it when stale.
// A cache miss falls through to a synchronous rebuild.
func GetLeaderboard() ([]Entry, error) {
	UpdateCacheIfNeeded()

	raw, err := cache.Get(CacheKeyLeaderboard)
	if err != nil || raw == "" {
		if err := UpdateLeaderboardCache(); err != nil {
			return nil, err
		}
		raw, err = cache.Get(CacheKeyLeaderboard)
		if err != nil {
			return nil, err
		}
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
