package parsers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/isikjon/parser-goszakupki.kz/internal/models"
	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

// listingContainer контейнер результатов на странице реестра
const listingContainer = "#search-result"

// ListingTask обработка одной страницы реестра одной сессией.
// Любая ошибка навигации или парсинга фиксируется (failed_pages +
// журнал неудач) и превращается в пустой результат — до барьера раунда
// она не доходит.
type ListingTask struct {
	Nav            Navigator
	Page           int
	BaseURL        string
	RecordsPerPage int
	WaitTimeout    time.Duration

	Stats   *models.RuntimeStats
	Dedup   *models.DedupTracker
	FailLog FailureLog
}

// Run выполняет задачу и возвращает принятые (недублирующиеся) записи.
// Ненулевая ошибка означает, что неудача уже зафиксирована.
func (t *ListingTask) Run(ctx context.Context) (accepted []models.Supplier, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при обработке страницы %d: %v", t.Page, r)
			t.recordFailure(err)
			accepted = nil
		}
	}()

	url := ListingURL(t.BaseURL, t.RecordsPerPage, t.Page)
	utils.Debugf("Обработка страницы %d: %s", t.Page, url)

	html, err := t.Nav.FetchRendered(ctx, url, listingContainer, t.WaitTimeout)
	if err != nil {
		t.recordFailure(err)
		return nil, err
	}

	rows, err := ParseListing(html)
	if err != nil {
		t.recordFailure(err)
		return nil, err
	}

	for _, sup := range rows {
		if t.Dedup.TryAccept(sup.SupplierID) {
			accepted = append(accepted, sup)
			utils.Debugf("Найден поставщик: %s - %s", sup.SupplierID, sup.Name)
		} else {
			t.Stats.DuplicateFound()
			utils.Debugf("Дубликат пропущен: %s", sup.SupplierID)
		}
	}

	utils.Infof("Страница %d: найдено %d уникальных поставщиков", t.Page, len(accepted))
	return accepted, nil
}

func (t *ListingTask) recordFailure(err error) {
	utils.Errorf("Ошибка парсинга страницы %d: %v", t.Page, err)
	t.Stats.PageFailed(t.Page)
	page := t.Page
	t.FailLog.LogFailedAttempt(&page, nil, err.Error())
}

// ParseListing разбирает строки таблицы результатов.
// Первые пять ячеек строки читаются позиционно; строки, из ссылки
// которых не извлекается идентификатор, молча пропускаются — это не
// неудача и не дубликат. Отсутствие контейнера целиком даёт пустой
// список, что считается корректным результатом.
func ParseListing(html string) ([]models.Supplier, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("разбор HTML: %w", err)
	}

	var suppliers []models.Supplier
	doc.Find(listingContainer + " tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		texts := make([]string, 5)
		for i := 0; i < 5; i++ {
			texts[i] = strings.TrimSpace(cells.Eq(i).Text())
		}

		href, _ := cells.Eq(1).Find("a").First().Attr("href")
		sup, err := models.NewSupplier(texts, href)
		if err != nil {
			// Строка без идентификатора: пропускаем без учёта
			return
		}
		suppliers = append(suppliers, sup)
	})

	return suppliers, nil
}
