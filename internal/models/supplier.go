package models

import (
	"fmt"
	"strings"
	"time"
)

// DetailLinkMarker фрагмент href, по которому из ссылки на карточку
// поставщика извлекается его уникальный идентификатор.
const DetailLinkMarker = "/show_supplier/"

// Supplier одна запись реестра поставщиков.
// Поля заполняются позиционно из ячеек строки таблицы выдачи:
// ячейка 0 — номер участника, 1 — наименование, 2 — БИН, 3 — ИИН, 4 — РНН.
type Supplier struct {
	ParticipantNumber string
	Name              string
	BIN               string
	IIN               string
	RNN               string

	// SupplierID уникальный идентификатор из ссылки на карточку
	SupplierID string
	DetailURL  string

	IsParsed   bool
	IsFailed   bool
	RetryCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSupplier собирает запись из ячеек строки и href ссылки на карточку.
// Возвращает ошибку, если из href не удаётся извлечь идентификатор —
// такие строки вызывающий код молча пропускает, не считая их ни
// дубликатами, ни неудачами.
func NewSupplier(cells []string, detailHref string) (Supplier, error) {
	if len(cells) < 5 {
		return Supplier{}, fmt.Errorf("строка содержит %d ячеек, ожидается минимум 5", len(cells))
	}

	id := ExtractSupplierID(detailHref)
	if id == "" {
		return Supplier{}, fmt.Errorf("ссылка на карточку не содержит идентификатор: %q", detailHref)
	}

	return Supplier{
		ParticipantNumber: strings.TrimSpace(cells[0]),
		Name:              strings.TrimSpace(cells[1]),
		BIN:               strings.TrimSpace(cells[2]),
		IIN:               strings.TrimSpace(cells[3]),
		RNN:               strings.TrimSpace(cells[4]),
		SupplierID:        id,
		DetailURL:         detailHref,
	}, nil
}

// ExtractSupplierID извлекает идентификатор поставщика из href.
// Идентификатор — последний сегмент пути после маркера /show_supplier/.
func ExtractSupplierID(href string) string {
	idx := strings.Index(href, DetailLinkMarker)
	if idx == -1 {
		return ""
	}
	id := href[idx+len(DetailLinkMarker):]
	if cut := strings.IndexAny(id, "?#"); cut != -1 {
		id = id[:cut]
	}
	return strings.TrimSpace(id)
}

// DetailField одно поле карточки поставщика.
// Составной ключ (supplier_id, section, field_name) уникален в хранилище.
type DetailField struct {
	SupplierID string
	Section    string
	FieldName  string
	FieldValue string
}

// FailedAttempt запись журнала неудачных попыток (append-only).
type FailedAttempt struct {
	ID           int64
	PageNumber   *int
	SupplierID   *string
	ErrorMessage string
	AttemptTime  time.Time
	Resolved     bool
}
