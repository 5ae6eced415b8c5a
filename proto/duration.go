package proto

import "time"

// Converters for duration/TTL. The wire protocol overloads the exptime field:
// values up to 30 days are relative seconds, anything larger is an absolute
// unix timestamp.

const Time30days = 30 * 24 * time.Hour

func ttlToExptime(ttl time.Duration) int32 {
	if ttl >= Time30days {
		return int32(time.Now().Add(ttl).Unix())
	}
	return int32(ttl.Truncate(time.Second).Seconds())
}
