package config

// BuildVersion is overridden at build time via ldflags
var BuildVersion = "development"
