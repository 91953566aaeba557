package config

// Defaults as literal values. They must
// agree with the default struct tags.
const (
	DefaultVersion           = "1"
	DefaultSiteName          = "Microsites"
	DefaultServerHost        = "0.0.0.0"
	DefaultServerPort        = "12600"
	DefaultDatabasePath      = "./microsites.db"
	DefaultCachePublicMaxAge = "0s"
	DefaultPagesStore        = PagesStoreNone
	DefaultAuthType          = AuthTypeEd25519
	DefaultThemeName         = "light"
	DefaultClientKeyFile     = "privkey.pem"
	DefaultClientTimeout     = "30s"
)

const (
	AuthTypeEd25519 = "ed25519"
	AuthTypeClerk   = "clerk"

	PagesStoreNone = "none"
	PagesStoreFS   = "fs"
	PagesStoreS3   = "s3"
)
