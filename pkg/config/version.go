package config

// Version is set at build time.
var Version = "dev"
