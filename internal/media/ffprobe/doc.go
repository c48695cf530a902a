// Package ffprobe reads container metadata from rendered media so the
// pipeline can report realized durations instead of planned ones.
package ffprobe
