package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/isikjon/parser-goszakupki.kz/internal/core"
	"github.com/isikjon/parser-goszakupki.kz/internal/export"
	"github.com/isikjon/parser-goszakupki.kz/internal/probe"
	"github.com/isikjon/parser-goszakupki.kz/internal/storage"
	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Командные параметры
var (
	// Глобальные параметры
	configFile string
	logLevel   string

	// Параметры прогона
	browsers     int
	startPage    int
	endPage      int
	headless     bool
	fetchDetails bool
	dbFile       string

	// Параметры экспорта
	outputFile string
)

// appConfig конфигурация, загруженная в PersistentPreRunE
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "goszakup",
	Short: "Турбо параллельный парсер реестра поставщиков goszakup.gov.kz",
	Long: `Турбо параллельный парсер реестра поставщиков госзакупок Казахстана.

Пул браузеров обрабатывает страницы реестра волнами: каждый раунд
раздаёт очередные страницы живым сессиям строго 1:1 и ждёт завершения
всех задач. Результаты пишутся в SQLite, дубликаты отсекаются на лету.

Примеры:
  # Интерактивное меню с пресетами
  goszakup

  # Явный диапазон страниц
  goszakup --browsers 50 --start 1 --end 1000

  # Проверка доступности реестра без запуска браузеров
  goszakup probe

  # Экспорт накопленной базы в XLSX
  goszakup export -o goszakup_full_database.xlsx

Версия: ` + Version,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("загрузка конфигурации: %w", err)
		}

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// Командная строка сильнее конфигурации
		if logLevel != "" {
			logConfig.Level = logLevel
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("инициализация логирования: %w", err)
		}

		applyFlagOverrides(cmd, config)
		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end := startPage, endPage

		// Без явного диапазона — интерактивное меню с пресетами
		if !cmd.Flags().Changed("start") && !cmd.Flags().Changed("end") {
			preset, ok := RunMenu(os.Stdin, appConfig)
			if !ok {
				fmt.Println("👋 До свидания!")
				return nil
			}
			appConfig.Pool.Size = preset.Browsers
			appConfig.Pool.Headless = preset.Headless
			start, end = preset.StartPage, preset.EndPage
		}

		if err := appConfig.Validate(start, end); err != nil {
			return err
		}

		store, err := storage.NewStore(appConfig.Storage.DBFile)
		if err != nil {
			return fmt.Errorf("инициализация хранилища: %w", err)
		}

		runner := core.NewRunner(appConfig, store)
		return runner.Run(context.Background(), start, end)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Проверить доступность реестра без запуска браузеров",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := probe.Check(
			appConfig.Parser.BaseURL,
			appConfig.Parser.RecordsPerPage,
			appConfig.Parser.WaitTimeoutDuration(),
		)
		if err != nil {
			return err
		}

		fmt.Printf("🌐 Реестр: %s\n", appConfig.Parser.BaseURL)
		fmt.Printf("✅ Доступен: %v (HTTP %d, %.1fс)\n", res.Reachable, res.StatusCode, res.Elapsed.Seconds())
		if res.LastPage > 0 {
			fmt.Printf("📄 Последняя страница: %d\n", res.LastPage)
		} else {
			fmt.Printf("📄 Пагинатор не распознан, верхняя граница: %d\n", appConfig.Parser.MaxPages)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Выгрузить накопленную базу в XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewStore(appConfig.Storage.DBFile)
		if err != nil {
			return fmt.Errorf("открытие хранилища: %w", err)
		}

		out := appConfig.Export.OutputFile
		if outputFile != "" {
			out = outputFile
		}

		fmt.Printf("📤 Экспорт %s → %s\n", appConfig.Storage.DBFile, out)
		count, err := export.NewExporter(store).Export(out)
		if err != nil {
			return err
		}

		fmt.Printf("✅ Выгружено поставщиков: %d\n", count)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Показать версию",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("goszakup %s\n", Version)
		fmt.Printf("Сборка: %s\n", BuildTime)
	},
}

// applyFlagOverrides переносит явно заданные флаги поверх конфигурации
func applyFlagOverrides(cmd *cobra.Command, config *core.Config) {
	if cmd.Flags().Changed("browsers") {
		config.Pool.Size = browsers
	}
	if cmd.Flags().Changed("headless") {
		config.Pool.Headless = headless
	}
	if cmd.Flags().Changed("details") {
		config.Parser.FetchDetails = fetchDetails
	}
	if cmd.Flags().Changed("db") {
		config.Storage.DBFile = dbFile
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "путь к файлу конфигурации")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "уровень логирования (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&dbFile, "db", "", "путь к файлу SQLite")

	rootCmd.Flags().IntVarP(&browsers, "browsers", "b", 50, "количество браузеров в пуле")
	rootCmd.Flags().IntVar(&startPage, "start", 1, "начальная страница")
	rootCmd.Flags().IntVar(&endPage, "end", 100, "конечная страница")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "режим без интерфейса")
	rootCmd.Flags().BoolVar(&fetchDetails, "details", false, "после списка пройти по карточкам поставщиков")

	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "путь к XLSX-файлу")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}
