// Package events fans job lifecycle events out to in-process subscribers
// over a watermill gochannel, and optionally on to Redis pub/sub.
//
// Publishing never blocks the pipeline on slow subscribers; delivery is best
// effort and unordered across events.
package events
