package parsers

import (
	"context"
	"fmt"
	"time"
)

// Navigator способность браузерной сессии: перейти по адресу, дождаться
// элемента не дольше таймаута и вернуть отрендеренный HTML. Реализуется
// browsers.Session; в тестах подменяется заглушкой.
type Navigator interface {
	FetchRendered(ctx context.Context, url, selector string, timeout time.Duration) (string, error)
}

// FailureLog журнал неудачных попыток (append-only, best-effort)
type FailureLog interface {
	LogFailedAttempt(page *int, supplierID *string, message string)
}

// ListingURL адрес страницы реестра с фиксированным размером выдачи
func ListingURL(baseURL string, recordsPerPage, page int) string {
	return fmt.Sprintf("%s/ru/registry/supplierreg?count_record=%d&page=%d", baseURL, recordsPerPage, page)
}

// DetailURL адрес карточки поставщика
func DetailURL(baseURL, supplierID string) string {
	return fmt.Sprintf("%s/ru/registry/show_supplier/%s", baseURL, supplierID)
}
