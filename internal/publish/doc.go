// Package publish uploads rendered videos. Every publisher treats missing
// credentials and platform rejections as soft failures: the job keeps its
// local video and reports why nothing was published.
package publish
