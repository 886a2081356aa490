package config

import "time"

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"12222"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	AppSource   string `env:"APP_SOURCE" envDefault:"crm-mailsync"`
}

type CRMDatabaseConfig struct {
	Host            string `env:"CRM_POSTGRES_HOST,required"`
	Port            string `env:"CRM_POSTGRES_PORT,required"`
	User            string `env:"CRM_POSTGRES_USER,required"`
	DBName          string `env:"CRM_POSTGRES_DB_NAME,required"`
	Password        string `env:"CRM_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"CRM_POSTGRES_DB_MAX_CONN" envDefault:"100"`
	MaxIdleConn     int    `env:"CRM_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"CRM_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"3600"`
	LogLevel        string `env:"CRM_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"CRM_POSTGRES_SSL_MODE" envDefault:"require"`
}

// R2StorageConfig is optional. Without an account id attachments are kept
// as provider references and fetched on demand.
type R2StorageConfig struct {
	AccountID             string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID           string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret       string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	EmailAttachmentBucket string `env:"BUCKET_NAME_EMAIL_ATTACHMENT" envDefault:"attachments"`
}

func (c *R2StorageConfig) Enabled() bool {
	return c != nil && c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != ""
}

type GmailConfig struct {
	ClientID          string        `env:"GOOGLE_CLIENT_ID"`
	ClientSecret      string        `env:"GOOGLE_CLIENT_SECRET"`
	RequestsPerSecond float64       `env:"GMAIL_REQUESTS_PER_SECOND" envDefault:"5"`
	Burst             int           `env:"GMAIL_BURST" envDefault:"10"`
	BreakerTimeout    time.Duration `env:"GMAIL_BREAKER_TIMEOUT" envDefault:"30s"`
}

type SyncConfig struct {
	PageSize     int64         `env:"SYNC_PAGE_SIZE" envDefault:"50"`
	FetchTimeout time.Duration `env:"SYNC_FETCH_TIMEOUT" envDefault:"30s"`
	SetupTimeout time.Duration `env:"SYNC_SETUP_TIMEOUT" envDefault:"15s"`
}

const MaxSyncPageSize = 500

// EffectivePageSize clamps the configured page size to 1..MaxSyncPageSize,
// using 50 when unset.
func (c *SyncConfig) EffectivePageSize() int64 {
	switch {
	case c == nil || c.PageSize <= 0:
		return 50
	case c.PageSize > MaxSyncPageSize:
		return MaxSyncPageSize
	default:
		return c.PageSize
	}
}

type CampaignConfig struct {
	StalePendingDays int `env:"CAMPAIGN_STALE_PENDING_DAYS" envDefault:"7"`
}

func (c *CampaignConfig) StaleWindow() time.Duration {
	days := 7
	if c != nil && c.StalePendingDays > 0 {
		days = c.StalePendingDays
	}
	return time.Duration(days) * 24 * time.Hour
}
