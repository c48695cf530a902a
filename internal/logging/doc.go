// Package logging assembles the slog loggers used across autotube.
//
// New builds a console (key=value) or JSON handler; NewFromConfig also tees
// every record as JSON into autotube.log under the configured log directory.
// WithContext stamps job, stage, and correlation identifiers carried on a
// context so stage adapters never thread them by hand.
package logging
