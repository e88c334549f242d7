package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config конфигурация приложения
type Config struct {
	Parser  ParserConfig  `mapstructure:"parser"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Export  ExportConfig  `mapstructure:"export"`
}

// ParserConfig параметры обхода реестра
type ParserConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	RecordsPerPage int    `mapstructure:"records_per_page"`
	WaitTimeout    int    `mapstructure:"wait_timeout"`   // секунды ожидания элемента
	RoundCooldown  int    `mapstructure:"round_cooldown"` // секунды между раундами
	MaxPages       int    `mapstructure:"max_pages"`      // верхняя граница диапазона
	FetchDetails   bool   `mapstructure:"fetch_details"`  // проход по карточкам после списка
}

// PoolConfig параметры пула браузеров
type PoolConfig struct {
	Size          int  `mapstructure:"size"`
	MaxSize       int  `mapstructure:"max_size"`
	BatchSize     int  `mapstructure:"batch_size"`
	BatchCooldown int  `mapstructure:"batch_cooldown"` // секунды между пачками
	Headless      bool `mapstructure:"headless"`
}

// StorageConfig параметры хранилища
type StorageConfig struct {
	DBFile string `mapstructure:"db_file"`
}

// LoggingConfig параметры логирования
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig параметры ротации логов
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// ExportConfig параметры экспорта
type ExportConfig struct {
	OutputFile string `mapstructure:"output_file"`
}

// LoadConfig загружает конфигурацию из файла с значениями по умолчанию
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".goszakup-parser"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Отсутствие файла не ошибка: работаем на значениях по умолчанию
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("чтение конфигурации: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}

	return &config, nil
}

// setDefaults значения по умолчанию (константы исходного реестра)
func setDefaults(v *viper.Viper) {
	v.SetDefault("parser.base_url", "https://www.goszakup.gov.kz")
	v.SetDefault("parser.records_per_page", 50)
	v.SetDefault("parser.wait_timeout", 15)
	v.SetDefault("parser.round_cooldown", 5)
	v.SetDefault("parser.max_pages", 10000)
	v.SetDefault("parser.fetch_details", false)

	v.SetDefault("pool.size", 50)
	v.SetDefault("pool.max_size", 500)
	v.SetDefault("pool.batch_size", 50)
	v.SetDefault("pool.batch_cooldown", 2)
	v.SetDefault("pool.headless", true)

	v.SetDefault("storage.db_file", "turbo_goszakup.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("export.output_file", "goszakup_full_database.xlsx")
}

// WaitTimeoutDuration таймаут ожидания элемента
func (c ParserConfig) WaitTimeoutDuration() time.Duration {
	return time.Duration(c.WaitTimeout) * time.Second
}

// RoundCooldownDuration передышка между раундами
func (c ParserConfig) RoundCooldownDuration() time.Duration {
	return time.Duration(c.RoundCooldown) * time.Second
}

// BatchCooldownDuration пауза между пачками создания браузеров
func (c PoolConfig) BatchCooldownDuration() time.Duration {
	return time.Duration(c.BatchCooldown) * time.Second
}

// Validate проверяет параметры перед запуском
func (c *Config) Validate(startPage, endPage int) error {
	if c.Pool.Size < 1 || c.Pool.Size > c.Pool.MaxSize {
		return fmt.Errorf("количество браузеров должно быть от 1 до %d, получено %d", c.Pool.MaxSize, c.Pool.Size)
	}
	if startPage < 1 || startPage > c.Parser.MaxPages {
		return fmt.Errorf("начальная страница должна быть от 1 до %d, получено %d", c.Parser.MaxPages, startPage)
	}
	if endPage < startPage || endPage > c.Parser.MaxPages {
		return fmt.Errorf("конечная страница должна быть от %d до %d, получено %d", startPage, c.Parser.MaxPages, endPage)
	}
	return nil
}
