// Package gbfs holds the General Bikeshare Feed Specification v2.2 documents served by the API.
package gbfs

import "time"

const Version = "2.2"

// Envelope is the common wrapper of every GBFS document. Once built it is never mutated,
// a newer document supersedes it instead.
type Envelope[T any] struct {
	LastUpdated int64  `json:"last_updated"`
	TTL         int    `json:"ttl"`
	Version     string `json:"version"`
	Data        T      `json:"data"`
}

func NewEnvelope[T any](now time.Time, ttl int, data T) *Envelope[T] {
	return &Envelope[T]{
		LastUpdated: now.Unix(),
		TTL:         ttl,
		Version:     Version,
		Data:        data,
	}
}
