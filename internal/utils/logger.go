package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger глобальный логгер приложения
var Logger zerolog.Logger

// LogConfig конфигурация логирования
type LogConfig struct {
	Level      string // уровень: trace, debug, info, warn, error
	LogDir     string // каталог логов
	MaxSize    int    // максимальный размер файла (МБ)
	MaxBackups int    // количество старых файлов
	MaxAge     int    // срок хранения (дни)
	Compress   bool   // сжимать старые логи
}

// DefaultLogConfig конфигурация логирования по умолчанию
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		LogDir:     "logs",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger инициализация системы логирования
// Консольный вывод идёт только от уровня warn и выше, чтобы не мешать
// панели статистики; подробный лог целиком уходит в файл с ротацией.
func InitLogger(config LogConfig) error {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Основной файл лога (с ротацией)
	mainLogFile := &lumberjack.Logger{
		Filename:   filepath.Join(config.LogDir, "goszakup_parser.log"),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	// Файл только для ошибок
	errorLogFile := &lumberjack.Logger{
		Filename:   filepath.Join(config.LogDir, "goszakup_parser_error.log"),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    false,
	}

	multiWriter := io.MultiWriter(
		&FilteredWriter{Writer: consoleWriter, MinLevel: zerolog.WarnLevel},
		mainLogFile,
		&FilteredWriter{Writer: errorLogFile, MinLevel: zerolog.ErrorLevel},
	)

	Logger = zerolog.New(multiWriter).
		With().
		Timestamp().
		Caller().
		Logger()

	log.Logger = Logger

	Logger.Info().
		Str("level", config.Level).
		Str("log_dir", config.LogDir).
		Msg("Система логирования инициализирована")

	return nil
}

// FilteredWriter пропускает только записи указанного уровня и выше
type FilteredWriter struct {
	Writer   io.Writer
	MinLevel zerolog.Level
}

// Write реализация io.Writer
func (w *FilteredWriter) Write(p []byte) (n int, err error) {
	return w.Writer.Write(p)
}

// WriteLevel запись с учётом уровня
func (w *FilteredWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	if level >= w.MinLevel {
		return w.Writer.Write(p)
	}
	return len(p), nil
}

// Info короткая запись информационного сообщения
func Info(msg string) {
	Logger.Info().Msg(msg)
}

// Infof форматированное информационное сообщение
func Infof(format string, args ...interface{}) {
	Logger.Info().Msgf(format, args...)
}

// Error сообщение об ошибке
func Error(err error, msg string) {
	Logger.Error().Err(err).Msg(msg)
}

// Errorf форматированное сообщение об ошибке
func Errorf(format string, args ...interface{}) {
	Logger.Error().Msgf(format, args...)
}

// Warn предупреждение
func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

// Warnf форматированное предупреждение
func Warnf(format string, args ...interface{}) {
	Logger.Warn().Msgf(format, args...)
}

// Debug отладочное сообщение
func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

// Debugf форматированное отладочное сообщение
func Debugf(format string, args ...interface{}) {
	Logger.Debug().Msgf(format, args...)
}

// Fatal критическая ошибка с завершением процесса
func Fatal(err error, msg string) {
	Logger.Fatal().Err(err).Msg(msg)
}
