package models

import "sync"

// DedupTracker множество уже принятых идентификаторов за время прогона.
// Растёт монотонно и не персистится: при новом запуске кросс-запусковые
// дубликаты всё равно схлопывает upsert в хранилище.
type DedupTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupTracker создаёт пустой трекер дубликатов
func NewDedupTracker() *DedupTracker {
	return &DedupTracker{seen: make(map[string]struct{})}
}

// TryAccept атомарная проверка-и-вставка: true только при первой встрече
// идентификатора. Критическая секция охватывает проверку и вставку целиком,
// поэтому при конкурентных вызовах из всех сессий раунда идентификатор
// принимается ровно один раз.
func (d *DedupTracker) TryAccept(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

// Len количество принятых идентификаторов
func (d *DedupTracker) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
