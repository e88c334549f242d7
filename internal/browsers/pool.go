package browsers

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

// ErrPoolExhausted ни одна сессия не пережила инициализацию
var ErrPoolExhausted = errors.New("не удалось создать ни одного браузера")

// PoolConfig конфигурация пула сессий
type PoolConfig struct {
	TargetSize    int           // запрошенное количество сессий
	BatchSize     int           // размер пачки параллельного создания
	BatchCooldown time.Duration // пауза между пачками
	Headless      bool
}

// Pool пул браузерных сессий фиксированного размера.
// Сессии создаются пачками параллельно; отказ создания отдельной сессии
// не фатален — пул продолжает с теми, что удались. Teardown идемпотентен
// и выполняется в порядке: корректное закрытие → принудительный reap
// процессов по маркеру прогона → удаление каталогов профилей.
type Pool struct {
	cfg    PoolConfig
	marker string

	mu       sync.Mutex
	sessions []*Session
	closed   bool
}

// NewPool создаёт пустой пул с уникальным маркером прогона
func NewPool(cfg PoolConfig) *Pool {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Pool{
		cfg:    cfg,
		marker: uuid.New().String()[:8],
	}
}

// Marker маркер прогона, вшитый в каталоги профилей
func (p *Pool) Marker() string {
	return p.marker
}

// Initialize создаёт сессии пачками параллельно.
// Между пачками выдерживается пауза, чтобы не получить всплеск нагрузки
// на старте. Живых сессий может оказаться меньше запрошенного — вплоть
// до нуля; решение об аварийном завершении принимает вызывающий код.
func (p *Pool) Initialize(ctx context.Context) {
	total := p.cfg.TargetSize
	utils.Infof("🚀 Параллельное создание %d браузеров (%s)", total, modeText(p.cfg.Headless))

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Создание браузеров"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	batches := (total + p.cfg.BatchSize - 1) / p.cfg.BatchSize

	for batch := 0; batch < batches; batch++ {
		if ctx.Err() != nil {
			utils.Warn("Создание пула прервано")
			break
		}

		start := batch * p.cfg.BatchSize
		end := start + p.cfg.BatchSize
		if end > total {
			end = total
		}
		utils.Infof("📦 Пачка %d/%d: браузеры %d-%d", batch+1, batches, start+1, end)

		var wg sync.WaitGroup
		batchSuccess := 0
		for id := start; id < end; id++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()

				session, err := NewSession(id, p.marker, p.cfg.Headless)
				bar.Add(1)
				if err != nil {
					utils.Errorf("Браузер %d не создан: %v", id+1, err)
					return
				}

				p.mu.Lock()
				p.sessions = append(p.sessions, session)
				batchSuccess++
				p.mu.Unlock()
			}(id)
		}
		wg.Wait()

		utils.Infof("🎯 Пачка %d завершена: %d/%d браузеров", batch+1, batchSuccess, end-start)

		if batch < batches-1 && p.cfg.BatchCooldown > 0 {
			utils.Debugf("Пауза %s между пачками", p.cfg.BatchCooldown)
			time.Sleep(p.cfg.BatchCooldown)
		}
	}

	utils.Infof("🏁 Создано %d/%d браузеров", p.Size(), total)
}

// Sessions живые сессии пула в порядке возрастания номеров.
// Пачки создаются параллельно и докладывают в произвольном порядке,
// поэтому порядок восстанавливается здесь.
func (p *Pool) Sessions() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Session, len(p.sessions))
	copy(out, p.sessions)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Size количество живых сессий
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Teardown идемпотентное уничтожение пула: повторные вызовы — no-op.
// Ошибки отдельных шагов логируются и не прерывают очистку; после
// teardown не остаётся ни живых сессий, ни каталогов профилей.
func (p *Pool) Teardown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	sessions := p.sessions
	p.sessions = nil
	p.mu.Unlock()

	if len(sessions) > 0 {
		utils.Infof("🔒 Закрытие %d браузеров...", len(sessions))
	}

	profileDirs := make([]string, 0, len(sessions))
	for _, s := range sessions {
		profileDirs = append(profileDirs, s.ProfileDir)
		if err := s.Close(); err != nil {
			utils.Warnf("Ошибка закрытия браузера %d: %v", s.ID+1, err)
		} else {
			utils.Debugf("Браузер %d закрыт корректно", s.ID+1)
		}
	}

	// Добиваем процессы, пережившие корректное закрытие
	if killed := ReapByMarker(p.marker); killed > 0 {
		utils.Infof("⚰️  Завершено %d процессов браузера", killed)
		time.Sleep(2 * time.Second)
	}

	removeProfileDirs(profileDirs)

	utils.Info("✅ Пул браузеров уничтожен")
}

// removeProfileDirs удаляет каталоги профилей, игнорируя отдельные сбои
func removeProfileDirs(dirs []string) {
	if len(dirs) == 0 {
		return
	}
	utils.Infof("🗑️  Удаление %d временных каталогов...", len(dirs))
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			utils.Warnf("Ошибка удаления %s: %v", dir, err)
		} else {
			utils.Debugf("Удалён временный каталог: %s", dir)
		}
	}
}
