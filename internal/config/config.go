package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config конфигурация сервиса
type Config struct {
	Server         ServerConfig         `toml:"server"`
	Database       DatabaseConfig       `toml:"database"`
	Redis          RedisConfig          `toml:"redis"`
	Kafka          KafkaConfig          `toml:"kafka"`
	Stripe         StripeConfig         `toml:"stripe"`
	GoogleCalendar GoogleCalendarConfig `toml:"google_calendar"`
	Scheduling     SchedulingConfig     `toml:"scheduling"`
	Logs           LogsConfig           `toml:"logs"`
	Metrics        MetricsConfig        `toml:"metrics"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`     // секунды
	WriteTimeout    int `toml:"write_timeout"`    // секунды
	IdleTimeout     int `toml:"idle_timeout"`     // секунды
	ShutdownTimeout int `toml:"shutdown_timeout"` // секунды
}

type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN собирает строку подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	// SlotCacheTTL время жизни кэша слотов, секунды
	SlotCacheTTL int `toml:"slot_cache_ttl"`
}

type KafkaConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type StripeConfig struct {
	SecretKey string `toml:"secret_key"`
	Timeout   int    `toml:"timeout"` // секунды
}

type GoogleCalendarConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Timeout int    `toml:"timeout"` // секунды
}

// SchedulingConfig глобальные настройки расчета слотов
type SchedulingConfig struct {
	// TimeSlotLength длина слота, секунды; 0 = длительность услуги
	TimeSlotLength int `toml:"time_slot_length"`

	// ServiceDurationAsSlot шаг дискретизации равен длительности услуги
	ServiceDurationAsSlot bool `toml:"service_duration_as_slot"`

	// MinimumTimeBeforeBooking запрет бронирования раньше, чем через N секунд
	MinimumTimeBeforeBooking int `toml:"minimum_time_before_booking"`

	// MinimumTimeBeforeCanceling запрет отмены позже, чем за N секунд до начала
	MinimumTimeBeforeCanceling int `toml:"minimum_time_before_canceling"`

	// DaysAvailableForBooking горизонт бронирования для клиентов, дни
	DaysAvailableForBooking int `toml:"days_available_for_booking"`

	// DefaultAppointmentStatus статус новой записи: pending или approved
	DefaultAppointmentStatus string `toml:"default_appointment_status"`

	// AllowBookingIfPending разрешает бронировать поверх pending-записей
	AllowBookingIfPending bool `toml:"allow_booking_if_pending"`

	// AllowBookingIfNotMinCapacity предлагать слоты ниже минимальной вместимости
	AllowBookingIfNotMinCapacity bool `toml:"allow_booking_if_not_min_capacity"`

	// ShowClientTimeZone клиент присылает время в UTC, перед расчетом оно
	// переводится в часовой пояс компании
	ShowClientTimeZone bool `toml:"show_client_time_zone"`

	// TimeZone часовой пояс компании (IANA), например Europe/Belgrade
	TimeZone string `toml:"time_zone"`
}

type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// Load читает и валидирует конфигурацию из toml-файла
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load - decode %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load - validate: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.HTTPPort <= 0 {
		return fmt.Errorf("server.http_port must be positive")
	}
	if c.Database.Host == "" || c.Database.DBName == "" {
		return fmt.Errorf("database.host and database.dbname are required")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	switch c.Scheduling.DefaultAppointmentStatus {
	case "", "pending", "approved":
	default:
		return fmt.Errorf("scheduling.default_appointment_status must be pending or approved")
	}
	return nil
}
