package core

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/isikjon/parser-goszakupki.kz/internal/browsers"
	"github.com/isikjon/parser-goszakupki.kz/internal/models"
	"github.com/isikjon/parser-goszakupki.kz/internal/parsers"
	"github.com/isikjon/parser-goszakupki.kz/internal/storage"
	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

// Runner координатор жизненного цикла прогона.
// Любой путь завершения — нормальный, ошибка, сигнал — проходит через
// один и тот же идемпотентный teardown: остановить монитор, уничтожить
// пул, показать итоговую статистику. Очистка никогда не паникует наружу.
type Runner struct {
	cfg   *Config
	store *storage.Store

	stats   *models.RuntimeStats
	dedup   *models.DedupTracker
	pool    *browsers.Pool
	monitor *StatsMonitor

	teardownOnce sync.Once
}

// NewRunner собирает координатор прогона
func NewRunner(cfg *Config, store *storage.Store) *Runner {
	return &Runner{
		cfg:   cfg,
		store: store,
		stats: models.NewRuntimeStats(),
		dedup: models.NewDedupTracker(),
		pool: browsers.NewPool(browsers.PoolConfig{
			TargetSize:    cfg.Pool.Size,
			BatchSize:     cfg.Pool.BatchSize,
			BatchCooldown: cfg.Pool.BatchCooldownDuration(),
			Headless:      cfg.Pool.Headless,
		}),
	}
}

// Run выполняет полный прогон по диапазону страниц [startPage, endPage].
// Внешние сигналы завершения переводятся в отмену контекста; задачи в
// полёте дорабатывают до собственного таймаута, после чего раунды
// останавливаются и выполняется teardown.
func (r *Runner) Run(ctx context.Context, startPage, endPage int) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.teardown()

	r.printSettings(startPage, endPage)

	utils.Info("=== НАЧАЛО ТУРБО ПАРСИНГА ===")
	utils.Infof("Диапазон страниц: %d-%d", startPage, endPage)
	utils.Infof("Headless режим: %v", r.cfg.Pool.Headless)

	r.pool.Initialize(ctx)
	if r.pool.Size() == 0 {
		fmt.Println("❌ Не удалось создать браузеры!")
		return browsers.ErrPoolExhausted
	}

	totalPages := endPage - startPage + 1
	r.monitor = NewStatsMonitor(r.stats, r.pool.Size, totalPages, r.cfg.Pool.Headless)
	r.monitor.Start()

	sessions := r.pool.Sessions()
	navs := make([]parsers.Navigator, len(sessions))
	for i, s := range sessions {
		navs[i] = s
	}

	sched := parsers.NewScheduler(parsers.SchedulerConfig{
		BaseURL:        r.cfg.Parser.BaseURL,
		RecordsPerPage: r.cfg.Parser.RecordsPerPage,
		WaitTimeout:    r.cfg.Parser.WaitTimeoutDuration(),
		RoundCooldown:  r.cfg.Parser.RoundCooldownDuration(),
	}, navs, r.stats, r.dedup, r.store)

	state := sched.RunPages(ctx, startPage, endPage)
	utils.Infof("Обход списка завершён: %s", state)

	// Отдельный проход по карточкам уже известных поставщиков
	if state == parsers.StateDrained && r.cfg.Parser.FetchDetails {
		ids, err := r.store.UnparsedSupplierIDs()
		if err != nil {
			utils.Errorf("Не удалось выбрать поставщиков для детализации: %v", err)
		} else if len(ids) > 0 {
			utils.Infof("🔍 Детализация %d поставщиков", len(ids))
			state = sched.RunDetails(ctx, ids)
			utils.Infof("Детализация завершена: %s", state)
		}
	}

	if state == parsers.StateCancelled {
		fmt.Println("\n⏹️  Остановка по запросу пользователя...")
		utils.Info("Парсинг остановлен пользователем")
	}

	r.teardown()

	fmt.Println("\n🎉 ТУРБО ПАРСИНГ ЗАВЕРШЁН!")
	utils.Info("=== ТУРБО ПАРСИНГ ЗАВЕРШЁН ===")
	return nil
}

// teardown идемпотентная очистка: монитор → пул → итоговая статистика
func (r *Runner) teardown() {
	r.teardownOnce.Do(func() {
		defer func() {
			if rec := recover(); rec != nil {
				utils.Errorf("Паника при очистке ресурсов: %v", rec)
			}
		}()

		fmt.Println("\n🧹 Очистка ресурсов...")
		utils.Info("Начало очистки ресурсов")

		if r.monitor != nil {
			r.monitor.Stop()
		}
		r.pool.Teardown()

		r.printFinalStats()

		fmt.Println("✅ Очистка завершена")
		utils.Info("Очистка ресурсов завершена")
	})
}

func (r *Runner) printSettings(startPage, endPage int) {
	mode := "HEADLESS"
	if !r.cfg.Pool.Headless {
		mode = "С ИНТЕРФЕЙСОМ"
	}

	fmt.Printf("🚀 ТУРБО ПАРАЛЛЕЛЬНЫЙ ПАРСЕР (%s)\n", mode)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("🎯 Настройки:")
	fmt.Printf("   • Режим: %s\n", mode)
	fmt.Printf("   • Общее количество браузеров: %d\n", r.cfg.Pool.Size)
	fmt.Printf("   • Передышка между раундами: %d секунд\n", r.cfg.Parser.RoundCooldown)
	fmt.Printf("   • Записей на странице: %d\n", r.cfg.Parser.RecordsPerPage)
	fmt.Printf("   • Диапазон страниц: %d-%d\n", startPage, endPage)
	fmt.Println(strings.Repeat("=", 70))
}

func (r *Runner) printFinalStats() {
	snap := r.stats.Snapshot()

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("📊 Итоговая статистика")
	fmt.Printf("⏱️  Время работы: %s\n", snap.Elapsed.Truncate(time.Second))
	fmt.Printf("📄 Обработано страниц: %d\n", snap.ProcessedPages)
	fmt.Printf("👥 Найдено поставщиков: %d\n", snap.FoundSuppliers)
	fmt.Printf("🔍 Детализировано: %d\n", snap.DetailedSuppliers)
	fmt.Printf("🔄 Дубликатов: %d\n", snap.DuplicatesFound)
	fmt.Printf("❌ Неудач страниц: %d\n", len(snap.FailedPages))
	fmt.Printf("❌ Неудач деталей: %d\n", len(snap.FailedSuppliers))
	fmt.Println(strings.Repeat("=", 70))

	utils.Infof("ИТОГО: pages=%d, found=%d, detailed=%d, duplicates=%d, failed_pages=%d, failed_suppliers=%d",
		snap.ProcessedPages, snap.FoundSuppliers, snap.DetailedSuppliers,
		snap.DuplicatesFound, len(snap.FailedPages), len(snap.FailedSuppliers))
}
