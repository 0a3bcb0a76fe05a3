package common

// Keys of the local metadata table.
const (
	AccessTokenKey = "access_token"
	SettingsKey    = "settings"
)

// DefaultTimezone anchors "current hour" and "current date" computations
// when the configuration does not name another zone.
const DefaultTimezone = "Asia/Jakarta"
