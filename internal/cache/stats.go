package cache

import "strconv"

// Stats is a snapshot of cache activity since the cache was created.
type Stats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Sets        uint64  `json:"sets"`
	Deletes     uint64  `json:"deletes"`
	HitRate     float64 `json:"hit_rate"`
	MemorySize  int     `json:"memory_size"`
	StorageSize int     `json:"storage_size"`
}

func newStats(hits, misses, sets, deletes uint64, memorySize, storageSize int) Stats {
	s := Stats{
		Hits:        hits,
		Misses:      misses,
		Sets:        sets,
		Deletes:     deletes,
		MemorySize:  memorySize,
		StorageSize: storageSize,
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total) * 100
	}
	return s
}

// HitRateString renders the hit rate with two decimals, or "0%" before any lookup.
func (s Stats) HitRateString() string {
	if s.Hits+s.Misses == 0 {
		return "0%"
	}
	return strconv.FormatFloat(s.HitRate, 'f', 2, 64) + "%"
}
