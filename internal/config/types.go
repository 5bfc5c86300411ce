package config

type Config struct {
	Server       ServerConfig
	SQL          SQLConfig
	Banking      BankingConfig
	Categorize   CategorizeConfig
	Import       ImportConfig
	Gamification GamificationConfig
	Chat         ChatConfig
	Analytics    AnalyticsConfig
}

type Secrets struct {
	SQL     SqlSecrets
	Banking BankingSecrets
	Influx  InfluxSecrets
	Auth    AuthSecrets

	// Alternative to the Sql struct, designed to be used with a heroku style
	// DATABASE_URL environment variable
	DatabaseURL string `env:"DATABASE_URL"`
}

type ServerConfig struct {
	Address string `json:"address"`
	Mode    string `json:"mode"`
}

type SQLConfig struct {
	Database  string `json:"database"`
	BatchSize int    `json:"batchSize"`
}

type BankingConfig struct {
	// open banking aggregator API base URL
	Endpoint        string          `json:"endpoint"`
	UpdateFrequency string          `json:"updateFrequency"`
	Accounts        []LinkedAccount `json:"accounts"`
}

// LinkedAccount maps an aggregator account to the user that linked it.
type LinkedAccount struct {
	UserID    string `json:"userId"`
	AccountID string `json:"accountId"`
	Currency  string `json:"currency"`
}

type CategorizeConfig struct {
	// category assigned when no rule matches, empty means a failed lookup is
	// reported as a per-transaction error instead
	FallbackCategory string `json:"fallbackCategory"`
}

type ImportConfig struct {
	// deadline applied to each remote step of the import pipeline, 0 disables
	StepTimeoutSeconds int `json:"stepTimeoutSeconds"`
}

type GamificationConfig struct {
	XPPerTransaction int `json:"xpPerTransaction"`
}

type ChatConfig struct {
	Model             string `json:"model"`
	FreeDailyMessages int    `json:"freeDailyMessages"`
}

type AnalyticsConfig struct {
	Enabled  bool   `json:"enabled"`
	Database string `json:"database"`
}

type SqlSecrets struct {
	SqlHost     string `env:"SQL_HOST"`
	SqlUsername string `env:"SQL_USERNAME"`
	SqlPassword string `env:"SQL_PASSWORD"`
}

type BankingSecrets struct {
	AccessToken string `json:"bankingAccessToken" env:"BANKING_ACCESS_TOKEN"`
}

type InfluxSecrets struct {
	InfluxEndpoint string `env:"INFLUX_ENDPOINT"`
	InfluxUsername string `env:"INFLUX_USERNAME"`
	InfluxPassword string `env:"INFLUX_PASSWORD"`
}

type AuthSecrets struct {
	JWTSecret string `json:"jwtSecret" env:"AUTH_JWT_SECRET"`
}
