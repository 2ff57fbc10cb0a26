// Package daily derives the shared secret for the daily challenge.
// Every player gets the same number on a given UTC date.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Number returns the day's number in [lo, hi].
// An empty or inverted range yields lo.
func Number(date time.Time, salt string, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	span := uint64(hi - lo + 1)
	return lo + int(seed(DateKey(date), salt)%span)
}

// seed is HMAC-SHA256(salt, key) truncated to its first 8 bytes.
func seed(key, salt string) uint64 {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(key))
	return binary.BigEndian.Uint64(mac.Sum(nil))
}
