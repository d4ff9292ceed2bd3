package common

// PackageName identifies this service in logs.
const PackageName = "feature-algorithm"

// Version is set at build time via -ldflags.
var Version = "dev"
