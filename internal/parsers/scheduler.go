package parsers

import (
	"context"
	"sync"
	"time"

	"github.com/isikjon/parser-goszakupki.kz/internal/models"
	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

// RoundState итоговое состояние планировщика
type RoundState int

const (
	StateIdle RoundState = iota
	StateRunning
	StateDrained   // диапазон исчерпан
	StateCancelled // прогон отменён
)

// String имя состояния
func (s RoundState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDrained:
		return "drained"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// SupplierStore часть хранилища, нужная планировщику
type SupplierStore interface {
	FailureLog
	SaveSupplier(sup models.Supplier, details map[string]string) error
	AttachDetails(supplierID string, details map[string]string) error
	MarkParsed(supplierID string) error
}

// SchedulerConfig параметры раундов
type SchedulerConfig struct {
	BaseURL        string
	RecordsPerPage int
	WaitTimeout    time.Duration
	RoundCooldown  time.Duration
}

// Scheduler гонит волны задач по живым сессиям пула.
// Каждый раунд берёт min(живых сессий, оставшихся страниц) подряд идущих
// страниц по возрастанию, раздаёт их сессиям строго 1:1 и ждёт жёсткий
// барьер — пока не завершится каждая задача раунда, успехом или неудачей.
// Между раундами выдерживается передышка; флаг отмены проверяется между
// раундами и перед каждой раздачей.
type Scheduler struct {
	cfg   SchedulerConfig
	navs  []Navigator
	stats *models.RuntimeStats
	dedup *models.DedupTracker
	store SupplierStore
}

// NewScheduler создаёт планировщик поверх живых сессий
func NewScheduler(cfg SchedulerConfig, navs []Navigator, stats *models.RuntimeStats, dedup *models.DedupTracker, store SupplierStore) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		navs:  navs,
		stats: stats,
		dedup: dedup,
		store: store,
	}
}

// RunPages обрабатывает включительный диапазон страниц [start, end] раундами.
// Возвращает StateDrained при исчерпании диапазона или StateCancelled,
// если сработала отмена. Ошибки отдельных задач сюда не доходят.
func (s *Scheduler) RunPages(ctx context.Context, start, end int) RoundState {
	if len(s.navs) == 0 || start > end {
		return StateDrained
	}

	cursor := start
	round := 1

	for cursor <= end {
		if ctx.Err() != nil {
			utils.Warn("Прогон отменён, раздача остановлена")
			return StateCancelled
		}

		batch := len(s.navs)
		if remaining := end - cursor + 1; remaining < batch {
			batch = remaining
		}

		utils.Infof("🔥 Раунд %d: страницы %d-%d (%d браузеров)", round, cursor, cursor+batch-1, batch)
		roundStart := time.Now()

		var wg sync.WaitGroup
		for i := 0; i < batch; i++ {
			page := cursor + i
			nav := s.navs[i]
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.runListing(ctx, nav, page)
			}()
		}
		wg.Wait()

		utils.Infof("✅ Раунд %d завершён за %.1fс", round, time.Since(roundStart).Seconds())
		cursor += batch
		round++

		if cursor <= end {
			if cancelled := s.cooldown(ctx); cancelled {
				return StateCancelled
			}
		}
	}

	return StateDrained
}

// RunDetails гонит отдельный проход по карточкам уже известных
// идентификаторов, раундами с теми же гарантиями барьера.
func (s *Scheduler) RunDetails(ctx context.Context, supplierIDs []string) RoundState {
	if len(s.navs) == 0 || len(supplierIDs) == 0 {
		return StateDrained
	}

	cursor := 0
	round := 1

	for cursor < len(supplierIDs) {
		if ctx.Err() != nil {
			utils.Warn("Прогон отменён, детализация остановлена")
			return StateCancelled
		}

		batch := len(s.navs)
		if remaining := len(supplierIDs) - cursor; remaining < batch {
			batch = remaining
		}

		utils.Infof("🔍 Раунд деталей %d: %d карточек", round, batch)

		var wg sync.WaitGroup
		for i := 0; i < batch; i++ {
			id := supplierIDs[cursor+i]
			nav := s.navs[i]
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.runDetail(ctx, nav, id)
			}()
		}
		wg.Wait()

		cursor += batch
		round++

		if cursor < len(supplierIDs) {
			if cancelled := s.cooldown(ctx); cancelled {
				return StateCancelled
			}
		}
	}

	return StateDrained
}

// runListing одна задача раунда: извлечение, сохранение, учёт.
// Сбой персистентности логируется и глотается — ни повторов, ни отката.
func (s *Scheduler) runListing(ctx context.Context, nav Navigator, page int) {
	task := &ListingTask{
		Nav:            nav,
		Page:           page,
		BaseURL:        s.cfg.BaseURL,
		RecordsPerPage: s.cfg.RecordsPerPage,
		WaitTimeout:    s.cfg.WaitTimeout,
		Stats:          s.stats,
		Dedup:          s.dedup,
		FailLog:        s.store,
	}

	records, err := task.Run(ctx)
	if err != nil {
		utils.Debugf("Страница %d завершилась неудачей: %v", page, err)
	}

	for _, sup := range records {
		if err := s.store.SaveSupplier(sup, nil); err != nil {
			utils.Errorf("Ошибка сохранения поставщика %s: %v", sup.SupplierID, err)
		}
	}

	s.stats.PageProcessed(len(records))
}

func (s *Scheduler) runDetail(ctx context.Context, nav Navigator, supplierID string) {
	task := &DetailTask{
		Nav:         nav,
		SupplierID:  supplierID,
		BaseURL:     s.cfg.BaseURL,
		WaitTimeout: s.cfg.WaitTimeout,
		Stats:       s.stats,
		FailLog:     s.store,
	}

	details, err := task.Run(ctx)
	if err != nil {
		return
	}

	// Пустая, но загрузившаяся карточка — тоже успех: поставщик помечается
	// детализированным, иначе он возвращался бы в каждый следующий проход
	if len(details) > 0 {
		if err := s.store.AttachDetails(supplierID, details); err != nil {
			utils.Errorf("Ошибка сохранения деталей %s: %v", supplierID, err)
			return
		}
	} else if err := s.store.MarkParsed(supplierID); err != nil {
		utils.Errorf("Ошибка обновления поставщика %s: %v", supplierID, err)
		return
	}
	s.stats.SupplierDetailed()
}

// cooldown передышка между раундами, прерываемая отменой
func (s *Scheduler) cooldown(ctx context.Context) (cancelled bool) {
	if s.cfg.RoundCooldown <= 0 {
		return false
	}
	utils.Debugf("😴 Передышка %s между раундами", s.cfg.RoundCooldown)
	select {
	case <-ctx.Done():
		return true
	case <-time.After(s.cfg.RoundCooldown):
		return false
	}
}
