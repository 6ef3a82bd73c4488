package broadcast

import (
	"strconv"
	"sync"
	"time"
)

var (
	tokenMu   sync.Mutex
	lastToken int64
)

// NewToken returns a sync token derived from now. Tokens from one process
// strictly increase even when the clock does not move.
func NewToken(now time.Time) string {
	tokenMu.Lock()
	defer tokenMu.Unlock()

	ms := now.UnixMilli()
	if ms <= lastToken {
		ms = lastToken + 1
	}
	lastToken = ms
	return strconv.FormatInt(ms, 10)
}
