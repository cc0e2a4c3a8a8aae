package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	ParcelBox ParcelBoxConfig `yaml:"parcelbox"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	Flights   FlightsConfig   `yaml:"flights"`
	Responder ResponderConfig `yaml:"responder"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	PackageEventsTopic  string `yaml:"package_events_topic"`
	WhatsAppEventsTopic string `yaml:"whatsapp_events_topic"`
	FlightUpdatesTopic  string `yaml:"flight_updates_topic"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ParcelBoxConfig struct {
	HTTPAddr            string `yaml:"http_addr"`
	KafkaConsumerGroup  string `yaml:"kafka_consumer_group"`
	ViewCacheTTLSeconds int    `yaml:"view_cache_ttl_seconds"`
	// IANA zone used for calendar days: dispatch dates, streaks, ranking periods.
	TimeZone string `yaml:"time_zone"`

	AutoReply         bool   `yaml:"auto_reply"`
	Greeting          string `yaml:"greeting"`
	SendRatePerMinute int    `yaml:"send_rate_per_minute"`
	ClaimLeaseSeconds int    `yaml:"claim_lease_seconds"`

	WorkerPollIntervalSeconds int `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int `yaml:"worker_batch_size"`
	WorkerConcurrency         int `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int `yaml:"worker_lease_seconds"`
	WorkerRateLimitPerMinute  int `yaml:"worker_rate_limit_per_minute"`

	WorkerHTTPAddr string `yaml:"worker_http_addr"`

	// Если не заданы: активный рейс 15..30 минут, дальний 6 часов, backoff 5/15/30/60 минут.
	WorkerActiveMinSeconds    int `yaml:"worker_active_min_seconds"`
	WorkerActiveMaxSeconds    int `yaml:"worker_active_max_seconds"`
	WorkerActiveWindowSeconds int `yaml:"worker_active_window_seconds"`
	WorkerScheduledSeconds    int `yaml:"worker_scheduled_seconds"`
	WorkerBackoff1Seconds     int `yaml:"worker_backoff_1_seconds"`
	WorkerBackoff2Seconds     int `yaml:"worker_backoff_2_seconds"`
	WorkerBackoff3Seconds     int `yaml:"worker_backoff_3_seconds"`
	WorkerBackoff4Seconds     int `yaml:"worker_backoff_4_seconds"`
}

type WhatsAppConfig struct {
	// Mode is "cloud" or "fake".
	Mode             string `yaml:"mode"`
	BaseURL          string `yaml:"base_url"`
	APIVersion       string `yaml:"api_version"`
	PhoneNumberID    string `yaml:"phone_number_id"`
	Token            string `yaml:"token"`
	VerifyToken      string `yaml:"verify_token"`
	ArrivalTemplate  string `yaml:"arrival_template"`
	TemplateLanguage string `yaml:"template_language"`
}

type FlightsConfig struct {
	// Mode is "http" or "fake".
	Mode             string `yaml:"mode"`
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	MaxRetries       int    `yaml:"max_retries"`
	InitialBackoffMs int    `yaml:"initial_backoff_ms"`
}

type ResponderConfig struct {
	BaseURL    string `yaml:"base_url"`
	MaxRetries int    `yaml:"max_retries"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
