package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// HTTP server
	Port string `env:"PORT" envDefault:"5260"`

	// Path to the sqlite database file
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/dealersync.db"`

	// Path to the vendor registry file
	VendorsPath string `env:"VENDORS_PATH" envDefault:"config/vendors.yaml"`

	// Crawling configuration
	Crawl struct {
		// Default delay between HTTP requests to one vendor (milliseconds)
		DelayMS int `env:"CRAWL_DELAY_MS" envDefault:"1000"`

		// Safety ceiling on listing pages per run
		MaxPages int `env:"CRAWL_MAX_PAGES" envDefault:"50"`

		// Per-request timeout in seconds
		TimeoutSeconds int `env:"CRAWL_TIMEOUT" envDefault:"30"`

		// Days a listing may be absent before being unlisted
		GraceDays int `env:"CRAWL_GRACE_DAYS" envDefault:"3"`

		// Days of absence before a listing is marked removed (0 disables)
		RemoveAfterDays int `env:"CRAWL_REMOVE_AFTER_DAYS" envDefault:"7"`
	}

	// Image migration configuration
	Images struct {
		// Vehicles per batch
		BatchSize int `env:"IMAGE_BATCH_SIZE" envDefault:"10"`

		// Image URLs kept per vehicle
		MaxPerVehicle int `env:"IMAGE_MAX_PER_VEHICLE" envDefault:"15"`

		// Upload retry policy
		RetryAttempts int `env:"IMAGE_RETRY_ATTEMPTS" envDefault:"3"`
		RetryDelayMS  int `env:"IMAGE_RETRY_DELAY_MS" envDefault:"1000"`
	}

	// Media store (S3-compatible) credentials
	Media struct {
		Endpoint  string `env:"MEDIA_ENDPOINT"`
		AccessKey string `env:"MEDIA_ACCESS_KEY"`
		SecretKey string `env:"MEDIA_SECRET_KEY"`
		Bucket    string `env:"MEDIA_BUCKET" envDefault:"vehicle-images"`
		UseSSL    bool   `env:"MEDIA_USE_SSL" envDefault:"true"`
	}

	// Telegram notifications
	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `env:"TELEGRAM_CHAT_ID"`
		Enabled  bool   `env:"TELEGRAM_ENABLED" envDefault:"false"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
