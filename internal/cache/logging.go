package cache

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// pkgLog holds the logger new caches copy at construction. Nil means discard.
var pkgLog atomic.Pointer[zerolog.Logger]

// SetLogger installs l for caches created afterwards, tagged component=cache.
// Caches already built keep the logger they were created with.
func SetLogger(l *zerolog.Logger) {
	if l == nil {
		pkgLog.Store(nil)
		return
	}
	tagged := l.With().Str("component", "cache").Logger()
	pkgLog.Store(&tagged)
}

func logger() zerolog.Logger {
	if l := pkgLog.Load(); l != nil {
		return *l
	}
	return zerolog.Nop()
}
