package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"120"`

	// DataDir holds the sqlite file, defect_photos/ and documents/.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// Store
	DatabaseDriver         string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseURL            string `envconfig:"DATABASE_URL"`
	SQLiteBusyTimeoutMs    int    `envconfig:"SQLITE_BUSY_TIMEOUT_MS" default:"5000"`
	DatabaseMaxOpenConns   int    `envconfig:"DATABASE_MAX_OPEN_CONNS" default:"0"`
	DatabaseConnMaxIdleMin int    `envconfig:"DATABASE_CONN_MAX_IDLE_MIN" default:"15"`

	// Documents
	SiteMemoTemplate string `envconfig:"SITE_MEMO_TEMPLATE"`
	Renderer         string `envconfig:"RENDERER" default:"chrome"`
	ChromePath       string `envconfig:"CHROME_PATH"`
	GotenbergURL     string `envconfig:"GOTENBERG_URL"`
	RenderTimeoutSec uint   `envconfig:"RENDER_TIMEOUT_SEC" default:"60"`

	// Sharing. Leave ShareBucket empty to disable.
	ShareBucket     string `envconfig:"SHARE_BUCKET"`
	SharePrefix     string `envconfig:"SHARE_PREFIX" default:"defect-reports"`
	ShareLinkTTLMin uint   `envconfig:"SHARE_LINK_TTL_MIN" default:"1440"`

	// Download token keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values. Random keys are used when unset.
	DownloadHashKey  string `envconfig:"DOWNLOAD_HASH_KEY"`  // 32 or 64 bytes
	DownloadBlockKey string `envconfig:"DOWNLOAD_BLOCK_KEY"` // 16, 24, or 32 bytes
}

const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"

	RendererChrome    = "chrome"
	RendererGotenberg = "gotenberg"
)
