// Package timezone keeps every timestamp the service produces in the
// application timezone configured by APP_TIMEZONE.
//
//	now := timezone.Now()
//	day, err := timezone.ParseDay("2024-05-01")
//	clock, err := timezone.ParseClock("18:30")
//
// The location is loaded on first use. Unknown names fall back to UTC.
package timezone
