package di

import "github.com/samber/do/v2"

// RegisterSingletons adds every skillswap provider to i. Each provider
// invokes what it needs, so the order below only documents the graph:
// config feeds the logger, the health tracker and the store; the cache,
// checker and session sit on the store; the channel client needs the
// session for its token; the event server needs config alone.
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewHealthTracker)
	do.Provide(i, NewStore)
	do.Provide(i, NewCache)
	do.Provide(i, NewChecker)
	do.Provide(i, NewSession)
	do.Provide(i, NewChannel)
	do.Provide(i, NewEventServer)
}
