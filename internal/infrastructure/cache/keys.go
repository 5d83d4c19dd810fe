package cache

import (
	"fmt"
	"time"

	"github.com/resonatelabs/resonate/internal/models"
)

// Namespace prefixes every key: resonate:{entity}:{id}:{dataType}.
const Namespace = "resonate"

// TTLs for derived artifacts. Safety sets and nudges never expire.
const (
	TTLProfile  = 24 * time.Hour
	TTLFeed     = 3 * time.Minute
	TTLERSScore = 1 * time.Hour
)

// UserKey builds resonate:user:{id}:{dataType} (namespace applied by the adapter).
func UserKey(userID, dataType string) string {
	return fmt.Sprintf("user:%s:%s", userID, dataType)
}

// UserPattern matches every cached artifact derived from one user.
func UserPattern(userID string) string {
	return fmt.Sprintf("user:%s:*", userID)
}

// ERSKey builds the pair score key from the canonical id order.
func ERSKey(a, b string) string {
	lo, hi := models.CanonicalPair(a, b)
	return fmt.Sprintf("ers:%s:%s:score", lo, hi)
}

// ERSPatterns matches every cached pair score involving one user. Pair keys
// are canonically ordered, so the id can sit in either position.
func ERSPatterns(userID string) []string {
	return []string{
		fmt.Sprintf("ers:%s:*", userID),
		fmt.Sprintf("ers:*:%s:score", userID),
	}
}

// Safety set keys read during feed filtering.
func BlocksKey(userID string) string    { return UserKey(userID, "blocks") }
func BlockedByKey(userID string) string { return UserKey(userID, "blocked_by") }
func PassedKey(userID string) string    { return UserKey(userID, "passed") }
func ResonatedKey(userID string) string { return UserKey(userID, "resonated") }

// Feed keys.
func FeedRankedKey(userID string) string { return UserKey(userID, "feed_ranked") }
func FeedPageKey(userID, cursor string) string {
	return UserKey(userID, "feed_page_"+cursor)
}
