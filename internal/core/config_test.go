package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfig_Defaults без файла работают встроенные значения
func TestLoadConfig_Defaults(t *testing.T) {
	// Пустой каталог, чтобы не подцепить реальный configs/config.yaml
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("загрузка без файла: %v", err)
	}

	if config.Parser.BaseURL != "https://www.goszakup.gov.kz" {
		t.Errorf("base_url = %q", config.Parser.BaseURL)
	}
	if config.Parser.RecordsPerPage != 50 {
		t.Errorf("records_per_page = %d, ожидалось 50", config.Parser.RecordsPerPage)
	}
	if config.Parser.WaitTimeoutDuration() != 15*time.Second {
		t.Errorf("wait_timeout = %s, ожидалось 15s", config.Parser.WaitTimeoutDuration())
	}
	if config.Parser.RoundCooldownDuration() != 5*time.Second {
		t.Errorf("round_cooldown = %s, ожидалось 5s", config.Parser.RoundCooldownDuration())
	}
	if config.Pool.Size != 50 || config.Pool.MaxSize != 500 {
		t.Errorf("pool = %d/%d, ожидалось 50/500", config.Pool.Size, config.Pool.MaxSize)
	}
	if config.Pool.BatchCooldownDuration() != 2*time.Second {
		t.Errorf("batch_cooldown = %s, ожидалось 2s", config.Pool.BatchCooldownDuration())
	}
	if !config.Pool.Headless {
		t.Error("headless по умолчанию должен быть включён")
	}
	if config.Storage.DBFile != "turbo_goszakup.db" {
		t.Errorf("db_file = %q", config.Storage.DBFile)
	}
	if config.Parser.FetchDetails {
		t.Error("fetch_details по умолчанию выключен")
	}
}

// TestLoadConfig_File значения из файла перекрывают умолчания
func TestLoadConfig_File(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
parser:
  round_cooldown: 9
pool:
  size: 7
  headless: false
storage:
  db_file: "custom.db"
`)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("загрузка из файла: %v", err)
	}

	if config.Parser.RoundCooldown != 9 {
		t.Errorf("round_cooldown = %d, ожидалось 9", config.Parser.RoundCooldown)
	}
	if config.Pool.Size != 7 {
		t.Errorf("pool.size = %d, ожидалось 7", config.Pool.Size)
	}
	if config.Pool.Headless {
		t.Error("headless должен быть выключен файлом")
	}
	if config.Storage.DBFile != "custom.db" {
		t.Errorf("db_file = %q, ожидалось custom.db", config.Storage.DBFile)
	}
	// Незаданные значения остаются умолчаниями
	if config.Parser.RecordsPerPage != 50 {
		t.Errorf("records_per_page = %d, ожидалось 50", config.Parser.RecordsPerPage)
	}
}

// TestConfig_Validate границы параметров прогона
func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Parser: ParserConfig{MaxPages: 10000},
			Pool:   PoolConfig{Size: 50, MaxSize: 500},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		start   int
		end     int
		wantErr bool
	}{
		{"корректные параметры", func(c *Config) {}, 1, 100, false},
		{"одна страница", func(c *Config) {}, 5, 5, false},
		{"ноль браузеров", func(c *Config) { c.Pool.Size = 0 }, 1, 100, true},
		{"слишком много браузеров", func(c *Config) { c.Pool.Size = 501 }, 1, 100, true},
		{"нулевая начальная страница", func(c *Config) {}, 0, 100, true},
		{"начало за верхней границей", func(c *Config) {}, 10001, 10002, true},
		{"конец раньше начала", func(c *Config) {}, 100, 50, true},
		{"конец за верхней границей", func(c *Config) {}, 1, 10001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base()
			tt.mutate(config)
			err := config.Validate(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%d, %d) ошибка = %v, ожидалась ошибка: %v", tt.start, tt.end, err, tt.wantErr)
			}
		})
	}
}
