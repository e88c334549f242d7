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

// detailContainer контейнер, появление которого означает загрузку карточки
const detailContainer = ".table"

// DetailTask получение карточки одного поставщика одной сессией.
// Таймаут и любая ошибка фиксируются (failed_suppliers + журнал неудач)
// и дают пустую карту полей; отсутствие таблицы на странице — корректный,
// хоть и пустой, результат.
type DetailTask struct {
	Nav         Navigator
	SupplierID  string
	BaseURL     string
	WaitTimeout time.Duration

	Stats   *models.RuntimeStats
	FailLog FailureLog
}

// Run выполняет задачу. Ненулевая ошибка означает, что неудача уже
// зафиксирована; пустая карта при nil-ошибке — валидный исход.
func (t *DetailTask) Run(ctx context.Context) (details map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при получении карточки %s: %v", t.SupplierID, r)
			t.recordFailure(err)
			details = map[string]string{}
		}
	}()

	url := DetailURL(t.BaseURL, t.SupplierID)
	utils.Debugf("Получение деталей поставщика %s", t.SupplierID)

	html, err := t.Nav.FetchRendered(ctx, url, detailContainer, t.WaitTimeout)
	if err != nil {
		t.recordFailure(err)
		return map[string]string{}, err
	}

	details, err = ParseDetails(html)
	if err != nil {
		t.recordFailure(err)
		return map[string]string{}, err
	}

	utils.Debugf("Получены детали поставщика %s: %d полей", t.SupplierID, len(details))
	return details, nil
}

func (t *DetailTask) recordFailure(err error) {
	utils.Errorf("Ошибка получения деталей %s: %v", t.SupplierID, err)
	t.Stats.SupplierFailed(t.SupplierID)
	id := t.SupplierID
	t.FailLog.LogFailedAttempt(nil, &id, err.Error())
}

// ParseDetails разбирает основную таблицу карточки в плоскую карту
// название→значение. Учитываются только строки ровно с двумя ячейками
// (th/td); остальные пропускаются.
func ParseDetails(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("разбор HTML: %w", err)
	}

	details := make(map[string]string)
	doc.Find("table.table-striped tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() != 2 {
			return
		}
		key := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())
		if key != "" {
			details[key] = value
		}
	})

	return details, nil
}
