package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/isikjon/parser-goszakupki.kz/internal/models"
	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
	_ "modernc.org/sqlite"
)

// Store хранилище результатов в SQLite.
// Каждый вызов открывает собственное соединение и закрывает его по
// завершении, поэтому объект соединения никогда не разделяется между
// потоками. busy_timeout позволяет конкурентным записям из сессий
// раунда дождаться своей очереди.
type Store struct {
	dbFile string
}

const schema = `
CREATE TABLE IF NOT EXISTS suppliers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	participant_number TEXT UNIQUE,
	name TEXT,
	bin TEXT,
	iin TEXT,
	rnn TEXT,
	supplier_id TEXT UNIQUE,
	detail_url TEXT,
	is_parsed BOOLEAN DEFAULT FALSE,
	is_failed BOOLEAN DEFAULT FALSE,
	retry_count INTEGER DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS supplier_details (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	supplier_id TEXT,
	section TEXT,
	field_name TEXT,
	field_value TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(supplier_id, section, field_name)
);

CREATE TABLE IF NOT EXISTS failed_attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	page_number INTEGER,
	supplier_id TEXT,
	error_message TEXT,
	attempt_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	resolved BOOLEAN DEFAULT FALSE
);
`

// NewStore создаёт хранилище и инициализирует схему БД
func NewStore(dbFile string) (*Store, error) {
	s := &Store{dbFile: dbFile}

	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("открытие БД: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("инициализация схемы БД: %w", err)
	}

	utils.Debugf("База данных инициализирована: %s", dbFile)
	return s, nil
}

// open новое соединение на один вызов
func (s *Store) open() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", s.dbFile)
	return sql.Open("sqlite", dsn)
}

// SaveSupplier сохраняет поставщика (upsert по supplier_id, полная замена
// строки с обновлением updated_at). Если передан непустой набор деталей,
// существующие детали поставщика удаляются и вставляется новый набор —
// оба запроса выполняются подряд на одном соединении.
func (s *Store) SaveSupplier(sup models.Supplier, details map[string]string) error {
	db, err := s.open()
	if err != nil {
		return fmt.Errorf("открытие БД: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT OR REPLACE INTO suppliers
		(participant_number, name, bin, iin, rnn, supplier_id, detail_url, is_parsed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sup.ParticipantNumber,
		sup.Name,
		sup.BIN,
		sup.IIN,
		sup.RNN,
		sup.SupplierID,
		sup.DetailURL,
		len(details) > 0 || sup.IsParsed,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("сохранение поставщика %s: %w", sup.SupplierID, err)
	}

	if len(details) > 0 {
		if _, err := db.Exec(`DELETE FROM supplier_details WHERE supplier_id = ?`, sup.SupplierID); err != nil {
			return fmt.Errorf("очистка деталей поставщика %s: %w", sup.SupplierID, err)
		}
		for name, value := range details {
			_, err := db.Exec(`
				INSERT INTO supplier_details (supplier_id, section, field_name, field_value)
				VALUES (?, ?, ?, ?)`,
				sup.SupplierID, "basic", name, value)
			if err != nil {
				return fmt.Errorf("сохранение детали %q поставщика %s: %w", name, sup.SupplierID, err)
			}
		}
		utils.Debugf("Поставщик %s сохранён с деталями (%d полей)", sup.SupplierID, len(details))
	} else {
		utils.Debugf("Поставщик %s сохранён без деталей", sup.SupplierID)
	}

	return nil
}

// AttachDetails заменяет набор деталей уже известного поставщика и
// помечает его как детализированного. Используется отдельным проходом
// по карточкам.
func (s *Store) AttachDetails(supplierID string, details map[string]string) error {
	db, err := s.open()
	if err != nil {
		return fmt.Errorf("открытие БД: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(`DELETE FROM supplier_details WHERE supplier_id = ?`, supplierID); err != nil {
		return fmt.Errorf("очистка деталей поставщика %s: %w", supplierID, err)
	}
	for name, value := range details {
		_, err := db.Exec(`
			INSERT INTO supplier_details (supplier_id, section, field_name, field_value)
			VALUES (?, ?, ?, ?)`,
			supplierID, "basic", name, value)
		if err != nil {
			return fmt.Errorf("сохранение детали %q поставщика %s: %w", name, supplierID, err)
		}
	}

	_, err = db.Exec(`UPDATE suppliers SET is_parsed = TRUE, updated_at = ? WHERE supplier_id = ?`,
		time.Now().Format(time.RFC3339), supplierID)
	if err != nil {
		return fmt.Errorf("обновление поставщика %s: %w", supplierID, err)
	}

	return nil
}

// MarkParsed помечает поставщика детализированным, не трогая детали.
// Нужен для карточек, которые загрузились, но не содержат ни одного поля:
// такой поставщик не должен попадать в повторные проходы детализации.
func (s *Store) MarkParsed(supplierID string) error {
	db, err := s.open()
	if err != nil {
		return fmt.Errorf("открытие БД: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(`UPDATE suppliers SET is_parsed = TRUE, updated_at = ? WHERE supplier_id = ?`,
		time.Now().Format(time.RFC3339), supplierID)
	if err != nil {
		return fmt.Errorf("обновление поставщика %s: %w", supplierID, err)
	}
	return nil
}

// LogFailedAttempt фиксирует неудачную попытку в журнале (append-only).
// Сбой самой записи в журнал только логируется и никогда не поднимается.
func (s *Store) LogFailedAttempt(page *int, supplierID *string, message string) {
	db, err := s.open()
	if err != nil {
		utils.Errorf("Не удалось открыть БД для журнала неудач: %v", err)
		return
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO failed_attempts (page_number, supplier_id, error_message)
		VALUES (?, ?, ?)`,
		nullableInt(page), nullableString(supplierID), message)
	if err != nil {
		utils.Errorf("Ошибка записи в журнал неудач: %v", err)
		return
	}

	utils.Warnf("Неудачная попытка зафиксирована: page=%v, supplier=%v", deref(page), deref(supplierID))
}

// UnparsedSupplierIDs идентификаторы поставщиков без полученных карточек,
// в порядке возрастания номера участника
func (s *Store) UnparsedSupplierIDs() ([]string, error) {
	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("открытие БД: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT supplier_id FROM suppliers
		WHERE is_parsed = FALSE AND supplier_id != ''
		ORDER BY participant_number`)
	if err != nil {
		return nil, fmt.Errorf("выборка недетализированных поставщиков: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Suppliers все сохранённые поставщики для экспорта
func (s *Store) Suppliers() ([]models.Supplier, error) {
	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("открытие БД: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT participant_number, name, bin, iin, rnn, supplier_id, detail_url,
		       is_parsed, is_failed, retry_count, created_at, updated_at
		FROM suppliers ORDER BY participant_number`)
	if err != nil {
		return nil, fmt.Errorf("выборка поставщиков: %w", err)
	}
	defer rows.Close()

	var suppliers []models.Supplier
	for rows.Next() {
		var sup models.Supplier
		var created, updated string
		err := rows.Scan(
			&sup.ParticipantNumber, &sup.Name, &sup.BIN, &sup.IIN, &sup.RNN,
			&sup.SupplierID, &sup.DetailURL,
			&sup.IsParsed, &sup.IsFailed, &sup.RetryCount,
			&created, &updated,
		)
		if err != nil {
			return nil, err
		}
		sup.CreatedAt = parseTimestamp(created)
		sup.UpdatedAt = parseTimestamp(updated)
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

// Details все сохранённые детали для экспорта
func (s *Store) Details() ([]models.DetailField, error) {
	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("открытие БД: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT supplier_id, section, field_name, field_value
		FROM supplier_details ORDER BY supplier_id, section, field_name`)
	if err != nil {
		return nil, fmt.Errorf("выборка деталей: %w", err)
	}
	defer rows.Close()

	var details []models.DetailField
	for rows.Next() {
		var d models.DetailField
		if err := rows.Scan(&d.SupplierID, &d.Section, &d.FieldName, &d.FieldValue); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// FailedAttempts содержимое журнала неудач
func (s *Store) FailedAttempts() ([]models.FailedAttempt, error) {
	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("открытие БД: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT id, page_number, supplier_id, error_message, attempt_time, resolved
		FROM failed_attempts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("выборка журнала неудач: %w", err)
	}
	defer rows.Close()

	var attempts []models.FailedAttempt
	for rows.Next() {
		var a models.FailedAttempt
		var page sql.NullInt64
		var supplier sql.NullString
		var at string
		if err := rows.Scan(&a.ID, &page, &supplier, &a.ErrorMessage, &at, &a.Resolved); err != nil {
			return nil, err
		}
		if page.Valid {
			p := int(page.Int64)
			a.PageNumber = &p
		}
		if supplier.Valid {
			id := supplier.String
			a.SupplierID = &id
		}
		a.AttemptTime = parseTimestamp(at)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func deref(v interface{}) interface{} {
	switch p := v.(type) {
	case *int:
		if p == nil {
			return "<nil>"
		}
		return *p
	case *string:
		if p == nil {
			return "<nil>"
		}
		return *p
	}
	return v
}

// parseTimestamp понимает оба формата: CURRENT_TIMESTAMP из SQLite и RFC3339
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
