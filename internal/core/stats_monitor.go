package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/isikjon/parser-goszakupki.kz/internal/models"
)

// StatsMonitor периодический наблюдатель статистики.
// Раз в период снимает срез RuntimeStats под блокировкой и рисует панель;
// на планирование раундов не влияет и завершение процесса не блокирует.
type StatsMonitor struct {
	stats      *models.RuntimeStats
	poolSize   func() int
	totalPages int
	headless   bool
	interval   time.Duration

	cancel context.CancelFunc
}

// NewStatsMonitor создаёт монитор с периодом обновления 5 секунд
func NewStatsMonitor(stats *models.RuntimeStats, poolSize func() int, totalPages int, headless bool) *StatsMonitor {
	return &StatsMonitor{
		stats:      stats,
		poolSize:   poolSize,
		totalPages: totalPages,
		headless:   headless,
		interval:   5 * time.Second,
	}
}

// Start запускает фоновый цикл отображения
func (m *StatsMonitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Render()
			}
		}
	}()
}

// Stop останавливает цикл; повторные вызовы безопасны
func (m *StatsMonitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Render выводит панель статистики по текущему срезу
func (m *StatsMonitor) Render() {
	snap := m.stats.Snapshot()

	mode := "HEADLESS"
	if !m.headless {
		mode = "С ИНТЕРФЕЙСОМ"
	}

	pagesPercent := 0.0
	if m.totalPages > 0 {
		pagesPercent = float64(snap.ProcessedPages) / float64(m.totalPages) * 100
	}

	fmt.Printf("\n🚀 ТУРБО ПАРАЛЛЕЛЬНЫЙ ПАРСЕР (%s)\n", mode)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("⏱️  Время работы: %s\n", snap.Elapsed.Truncate(time.Second))
	fmt.Printf("🌐 Активных браузеров: %d\n", m.poolSize())
	fmt.Printf("📄 Страниц: %d/%d (%.1f%%)\n", snap.ProcessedPages, m.totalPages, pagesPercent)
	fmt.Printf("👥 Найдено: %d поставщиков\n", snap.FoundSuppliers)
	fmt.Printf("🔍 Детализировано: %d\n", snap.DetailedSuppliers)
	fmt.Printf("🔄 Дубликатов: %d\n", snap.DuplicatesFound)
	fmt.Printf("❌ Неудач страниц: %d\n", len(snap.FailedPages))
	fmt.Printf("❌ Неудач деталей: %d\n", len(snap.FailedSuppliers))
	if snap.Elapsed > 0 {
		fmt.Printf("⚡ Скорость: %.1f стр/мин | %.1f поставщиков/мин\n",
			snap.PagesPerMinute(), snap.SuppliersPerMinute())
	}
	fmt.Println(strings.Repeat("=", 70))
}
