package processor

import (
	"sync/atomic"
	"time"
)

// versionCounter is the process-wide monotonic VersionedValue counter: each
// new version is strictly greater than the last and >= current wall time,
// advanced by max(now, last) + 10 per the concurrency model.
var versionCounter atomic.Int64

func nextVersion() int64 {
	now := time.Now().UnixNano()
	for {
		last := versionCounter.Load()
		next := last
		if now > next {
			next = now
		}
		next += 10
		if versionCounter.CompareAndSwap(last, next) {
			return next
		}
	}
}
