// Package metrics provides Prometheus collectors for binged components.
package metrics

// Datastore operation labels.
const (
	OpReplace    = "replace"
	OpList       = "list"
	OpDeleteByID = "delete_by_id"
	OpConnect    = "connect"
	OpMigrate    = "migrate"
)

// Status label values.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// Cache result label values.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheShared = "shared" // served by an in-flight singleflight call
	CacheEvict  = "invalidate"
)

// Histogram bucket layout.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~16s range).
	BucketStart1ms = 0.001
	// BucketFactor2 doubles each bucket.
	BucketFactor2 = 2
	// BucketCount15 gives 15 buckets.
	BucketCount15 = 15
	// BucketCount10 gives 10 buckets.
	BucketCount10 = 10
)
