// Package config loads autotube configuration from TOML, applies defaults,
// pulls credentials from the environment (including .env files), and
// validates the result.
//
// Prefer Load so every caller sees the same normalized view: expanded paths,
// resolved provider names, and credential fallbacks.
package config
