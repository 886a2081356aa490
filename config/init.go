package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	cron_config "github.com/wahajws/amast-crm-sub001/internal/cron/config"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
)

type Config struct {
	AppConfig         *AppConfig
	Logger            *logger.Config
	Tracing           *tracing.JaegerConfig
	CRMDatabaseConfig *CRMDatabaseConfig
	R2StorageConfig   *R2StorageConfig
	GmailConfig       *GmailConfig
	SyncConfig        *SyncConfig
	MatchingConfig    *domain_matcher.Policy
	CampaignConfig    *CampaignConfig
	CronConfig        *cron_config.Config
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:         &AppConfig{},
		Logger:            &logger.Config{},
		Tracing:           &tracing.JaegerConfig{},
		CRMDatabaseConfig: &CRMDatabaseConfig{},
		R2StorageConfig:   &R2StorageConfig{},
		GmailConfig:       &GmailConfig{},
		SyncConfig:        &SyncConfig{},
		MatchingConfig:    &domain_matcher.Policy{},
		CampaignConfig:    &CampaignConfig{},
		CronConfig:        &cron_config.Config{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
