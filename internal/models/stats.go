package models

import (
	"sort"
	"sync"
	"time"
)

// RuntimeStats общее состояние прогона: счётчики и множества неудач
// под одним мьютексом. Передаётся по ссылке во все задачи, глобальных
// переменных нет. Задержки задач исчисляются секундами сетевых ожиданий,
// поэтому грубая блокировка не создаёт заметной конкуренции.
type RuntimeStats struct {
	mu sync.Mutex

	startedAt time.Time

	processedPages    int
	foundSuppliers    int
	detailedSuppliers int
	duplicatesFound   int

	failedPages     map[int]struct{}
	failedSuppliers map[string]struct{}
}

// StatsSnapshot согласованный срез статистики для отображения
type StatsSnapshot struct {
	StartedAt         time.Time
	Elapsed           time.Duration
	ProcessedPages    int
	FoundSuppliers    int
	DetailedSuppliers int
	DuplicatesFound   int
	FailedPages       []int
	FailedSuppliers   []string
}

// NewRuntimeStats создаёт статистику прогона
func NewRuntimeStats() *RuntimeStats {
	return &RuntimeStats{
		startedAt:       time.Now(),
		failedPages:     make(map[int]struct{}),
		failedSuppliers: make(map[string]struct{}),
	}
}

// PageProcessed страница обработана, найдено found принятых записей
func (s *RuntimeStats) PageProcessed(found int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processedPages++
	s.foundSuppliers += found
}

// SupplierDetailed карточка поставщика успешно детализирована
func (s *RuntimeStats) SupplierDetailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailedSuppliers++
}

// DuplicateFound зафиксирован отклонённый дубликат
func (s *RuntimeStats) DuplicateFound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duplicatesFound++
}

// PageFailed страница не обработана
func (s *RuntimeStats) PageFailed(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedPages[page] = struct{}{}
}

// SupplierFailed карточка поставщика не получена
func (s *RuntimeStats) SupplierFailed(supplierID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedSuppliers[supplierID] = struct{}{}
}

// Snapshot возвращает согласованный срез под блокировкой
func (s *RuntimeStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages := make([]int, 0, len(s.failedPages))
	for p := range s.failedPages {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	suppliers := make([]string, 0, len(s.failedSuppliers))
	for id := range s.failedSuppliers {
		suppliers = append(suppliers, id)
	}
	sort.Strings(suppliers)

	return StatsSnapshot{
		StartedAt:         s.startedAt,
		Elapsed:           time.Since(s.startedAt),
		ProcessedPages:    s.processedPages,
		FoundSuppliers:    s.foundSuppliers,
		DetailedSuppliers: s.detailedSuppliers,
		DuplicatesFound:   s.duplicatesFound,
		FailedPages:       pages,
		FailedSuppliers:   suppliers,
	}
}

// PagesPerMinute скорость обработки страниц от старта прогона
func (snap StatsSnapshot) PagesPerMinute() float64 {
	minutes := snap.Elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(snap.ProcessedPages) / minutes
}

// SuppliersPerMinute скорость накопления поставщиков от старта прогона
func (snap StatsSnapshot) SuppliersPerMinute() float64 {
	minutes := snap.Elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(snap.FoundSuppliers) / minutes
}
