package app

// Build information set with -ldflags "-X github.com/hyperifyio/listingcrawl/internal/app.BuildVersion=...".
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)
