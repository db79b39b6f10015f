// Package kv holds the KVStore backends: in-memory, SQLite and MySQL.
package kv

import "time"

const defaultCleanupFreq = 10 * time.Minute

// expiryMillis converts a ttl into the stored expiry; zero means the key never expires
func expiryMillis(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).UnixMilli()
}

// prefixUpperBound returns the smallest key greater than every key with the prefix,
// or "" when there is none
func prefixUpperBound(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}

func cleanupFrequency(freq time.Duration) time.Duration {
	if freq <= 0 {
		return defaultCleanupFreq
	}
	return freq
}
