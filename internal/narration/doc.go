// Package narration synthesizes the voice track for a script.
package narration
