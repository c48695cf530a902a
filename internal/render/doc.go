// Package render assembles the final vertical video with ffmpeg: a solid
// tone-colored background, the narration track, and burned-in captions timed
// from the script beats.
package render
