package parsers

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/isikjon/parser-goszakupki.kz/internal/models"
	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

func TestMain(m *testing.M) {
	utils.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

// fakeNavigator отдаёт заранее заданный HTML и считает конкурентные вызовы
type fakeNavigator struct {
	html string
	err  error

	inflight    *int32
	maxInflight *int32

	mu    sync.Mutex
	urls  []string
	calls int
}

func (f *fakeNavigator) FetchRendered(ctx context.Context, url, selector string, timeout time.Duration) (string, error) {
	if f.inflight != nil {
		cur := atomic.AddInt32(f.inflight, 1)
		for {
			max := atomic.LoadInt32(f.maxInflight)
			if cur <= max || atomic.CompareAndSwapInt32(f.maxInflight, max, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		defer atomic.AddInt32(f.inflight, -1)
	}

	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.calls++
	f.mu.Unlock()

	return f.html, f.err
}

// fakeStore запоминает сохранения в памяти
type fakeStore struct {
	mu       sync.Mutex
	saved    []models.Supplier
	details  map[string]map[string]string
	parsed   []string
	failures []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{details: make(map[string]map[string]string)}
}

func (f *fakeStore) SaveSupplier(sup models.Supplier, details map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, sup)
	return nil
}

func (f *fakeStore) AttachDetails(supplierID string, details map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[supplierID] = details
	return nil
}

func (f *fakeStore) MarkParsed(supplierID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parsed = append(f.parsed, supplierID)
	return nil
}

func (f *fakeStore) LogFailedAttempt(page *int, supplierID *string, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, message)
}

func listingPage(ids ...string) string {
	html := `<div id="search-result"><table><tbody>`
	for i, id := range ids {
		html += fmt.Sprintf(
			`<tr><td>%d</td><td><a href="/ru/registry/show_supplier/%s">Поставщик %s</a></td><td>бин</td><td>иин</td><td>рнн</td></tr>`,
			i+1, id, id)
	}
	return html + `</tbody></table></div>`
}

func testScheduler(navs []Navigator, stats *models.RuntimeStats, dedup *models.DedupTracker, store SupplierStore) *Scheduler {
	return NewScheduler(SchedulerConfig{
		BaseURL:        "https://example.test",
		RecordsPerPage: 50,
		WaitTimeout:    time.Second,
		RoundCooldown:  0,
	}, navs, stats, dedup, store)
}

// TestScheduler_RunPages раунды покрывают диапазон и не превышают
// размер пула по конкурентности
func TestScheduler_RunPages(t *testing.T) {
	var inflight, maxInflight int32

	navs := make([]Navigator, 3)
	fakes := make([]*fakeNavigator, 3)
	for i := range navs {
		f := &fakeNavigator{
			html:        listingPage(fmt.Sprintf("id-%d", i)),
			inflight:    &inflight,
			maxInflight: &maxInflight,
		}
		fakes[i] = f
		navs[i] = f
	}

	stats := models.NewRuntimeStats()
	store := newFakeStore()
	sched := testScheduler(navs, stats, models.NewDedupTracker(), store)

	state := sched.RunPages(context.Background(), 1, 7)
	if state != StateDrained {
		t.Fatalf("состояние = %v, ожидалось drained", state)
	}

	total := 0
	for _, f := range fakes {
		total += f.calls
	}
	if total != 7 {
		t.Errorf("выполнено %d задач, ожидалось 7", total)
	}
	if maxInflight > 3 {
		t.Errorf("конкурентность %d превысила размер пула 3", maxInflight)
	}

	snap := stats.Snapshot()
	if snap.ProcessedPages != 7 {
		t.Errorf("ProcessedPages = %d, ожидалось 7", snap.ProcessedPages)
	}
	// Три уникальных идентификатора, остальное — дубликаты по страницам
	if len(store.saved) != 3 {
		t.Errorf("сохранено %d поставщиков, ожидалось 3", len(store.saved))
	}
	if snap.FoundSuppliers != 3 {
		t.Errorf("FoundSuppliers = %d, ожидалось 3", snap.FoundSuppliers)
	}
	if snap.DuplicatesFound != 4 {
		t.Errorf("DuplicatesFound = %d, ожидалось 4", snap.DuplicatesFound)
	}
}

// TestScheduler_RunPages_Cancelled отмена до старта не раздаёт задачи
func TestScheduler_RunPages_Cancelled(t *testing.T) {
	f := &fakeNavigator{html: listingPage("x")}
	stats := models.NewRuntimeStats()
	sched := testScheduler([]Navigator{f}, stats, models.NewDedupTracker(), newFakeStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := sched.RunPages(ctx, 1, 100)
	if state != StateCancelled {
		t.Fatalf("состояние = %v, ожидалось cancelled", state)
	}
	if f.calls != 0 {
		t.Errorf("выполнено %d задач после отмены, ожидалось 0", f.calls)
	}
}

// TestScheduler_RunPages_EmptyRange пустой диапазон и пустой пул
func TestScheduler_RunPages_EmptyRange(t *testing.T) {
	stats := models.NewRuntimeStats()

	t.Run("пустой пул", func(t *testing.T) {
		sched := testScheduler(nil, stats, models.NewDedupTracker(), newFakeStore())
		if state := sched.RunPages(context.Background(), 1, 10); state != StateDrained {
			t.Errorf("состояние = %v, ожидалось drained", state)
		}
	})

	t.Run("start больше end", func(t *testing.T) {
		f := &fakeNavigator{html: listingPage("x")}
		sched := testScheduler([]Navigator{f}, stats, models.NewDedupTracker(), newFakeStore())
		if state := sched.RunPages(context.Background(), 10, 5); state != StateDrained {
			t.Errorf("состояние = %v, ожидалось drained", state)
		}
		if f.calls != 0 {
			t.Errorf("выполнено %d задач, ожидалось 0", f.calls)
		}
	})
}

// TestScheduler_RunPages_Failure неудача задачи фиксируется,
// но страница всё равно считается обработанной
func TestScheduler_RunPages_Failure(t *testing.T) {
	f := &fakeNavigator{err: fmt.Errorf("таймаут ожидания контейнера")}
	stats := models.NewRuntimeStats()
	store := newFakeStore()
	sched := testScheduler([]Navigator{f}, stats, models.NewDedupTracker(), store)

	state := sched.RunPages(context.Background(), 1, 2)
	if state != StateDrained {
		t.Fatalf("состояние = %v, ожидалось drained", state)
	}

	snap := stats.Snapshot()
	if snap.ProcessedPages != 2 {
		t.Errorf("ProcessedPages = %d, ожидалось 2", snap.ProcessedPages)
	}
	if len(snap.FailedPages) != 2 {
		t.Errorf("FailedPages = %v, ожидалось две страницы", snap.FailedPages)
	}
	if len(store.failures) != 2 {
		t.Errorf("в журнале %d записей, ожидалось 2", len(store.failures))
	}
	if len(store.saved) != 0 {
		t.Errorf("сохранено %d поставщиков после неудач, ожидалось 0", len(store.saved))
	}
}

// TestScheduler_RunDetails проход по карточкам
func TestScheduler_RunDetails(t *testing.T) {
	detailHTML := `<table class="table table-striped">
		<tr><th>БИН</th><td>123</td></tr>
	</table>`

	t.Run("детали сохраняются", func(t *testing.T) {
		f := &fakeNavigator{html: detailHTML}
		stats := models.NewRuntimeStats()
		store := newFakeStore()
		sched := testScheduler([]Navigator{f}, stats, models.NewDedupTracker(), store)

		state := sched.RunDetails(context.Background(), []string{"111", "222"})
		if state != StateDrained {
			t.Fatalf("состояние = %v, ожидалось drained", state)
		}
		if len(store.details) != 2 {
			t.Errorf("детали сохранены для %d поставщиков, ожидалось 2", len(store.details))
		}
		if store.details["111"]["БИН"] != "123" {
			t.Errorf("детали 111 = %v", store.details["111"])
		}
		if snap := stats.Snapshot(); snap.DetailedSuppliers != 2 {
			t.Errorf("DetailedSuppliers = %d, ожидалось 2", snap.DetailedSuppliers)
		}
	})

	t.Run("неудача фиксируется без сохранения", func(t *testing.T) {
		f := &fakeNavigator{err: fmt.Errorf("страница не загрузилась")}
		stats := models.NewRuntimeStats()
		store := newFakeStore()
		sched := testScheduler([]Navigator{f}, stats, models.NewDedupTracker(), store)

		state := sched.RunDetails(context.Background(), []string{"111"})
		if state != StateDrained {
			t.Fatalf("состояние = %v, ожидалось drained", state)
		}
		if len(store.details) != 0 {
			t.Errorf("детали не должны сохраняться при неудаче: %v", store.details)
		}
		snap := stats.Snapshot()
		if snap.DetailedSuppliers != 0 {
			t.Errorf("DetailedSuppliers = %d, ожидалось 0", snap.DetailedSuppliers)
		}
		if len(snap.FailedSuppliers) != 1 {
			t.Errorf("FailedSuppliers = %v, ожидался один идентификатор", snap.FailedSuppliers)
		}
	})

	t.Run("пустая карточка считается детализированной", func(t *testing.T) {
		f := &fakeNavigator{html: "<div class='table'></div>"}
		stats := models.NewRuntimeStats()
		store := newFakeStore()
		sched := testScheduler([]Navigator{f}, stats, models.NewDedupTracker(), store)

		if state := sched.RunDetails(context.Background(), []string{"111"}); state != StateDrained {
			t.Fatalf("состояние ожидалось drained")
		}
		if len(store.details) != 0 {
			t.Errorf("пустой набор полей не должен заменять детали")
		}
		// Поставщик всё равно помечается детализированным, иначе он
		// возвращался бы в каждый следующий проход
		if len(store.parsed) != 1 || store.parsed[0] != "111" {
			t.Errorf("помечены детализированными %v, ожидался [111]", store.parsed)
		}
		if snap := stats.Snapshot(); snap.DetailedSuppliers != 1 {
			t.Errorf("DetailedSuppliers = %d, ожидалось 1", snap.DetailedSuppliers)
		}
	})

	t.Run("пустой список идентификаторов", func(t *testing.T) {
		f := &fakeNavigator{html: detailHTML}
		sched := testScheduler([]Navigator{f}, models.NewRuntimeStats(), models.NewDedupTracker(), newFakeStore())
		if state := sched.RunDetails(context.Background(), nil); state != StateDrained {
			t.Errorf("состояние ожидалось drained")
		}
		if f.calls != 0 {
			t.Errorf("выполнено %d задач, ожидалось 0", f.calls)
		}
	})
}

// TestScheduler_Cooldown передышка прерывается отменой
func TestScheduler_Cooldown(t *testing.T) {
	f := &fakeNavigator{html: listingPage("x")}
	stats := models.NewRuntimeStats()
	sched := NewScheduler(SchedulerConfig{
		BaseURL:        "https://example.test",
		RecordsPerPage: 50,
		WaitTimeout:    time.Second,
		RoundCooldown:  10 * time.Second,
	}, []Navigator{f}, stats, models.NewDedupTracker(), newFakeStore())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Отмена во время передышки после первого раунда
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	state := sched.RunPages(ctx, 1, 5)
	if state != StateCancelled {
		t.Fatalf("состояние = %v, ожидалось cancelled", state)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("передышка не прервалась отменой: %s", elapsed)
	}
}
