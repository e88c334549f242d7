package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/isikjon/parser-goszakupki.kz/internal/models"
	"github.com/isikjon/parser-goszakupki.kz/internal/storage"
	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

// Экспортер выгружает всю базу в один XLSX-файл с тремя листами:
// поставщики, детали и сводная статистика. Экспорт читает хранилище
// теми же выборками, что и остальной код, и не трогает схему.

const (
	sheetSuppliers = "Поставщики"
	sheetDetails   = "Детали"
	sheetStats     = "Статистика"
)

// Exporter выгрузка базы в XLSX
type Exporter struct {
	store *storage.Store
}

// NewExporter создаёт экспортер поверх хранилища
func NewExporter(store *storage.Store) *Exporter {
	return &Exporter{store: store}
}

// Export пишет все данные в outputFile и возвращает количество
// выгруженных поставщиков
func (e *Exporter) Export(outputFile string) (int, error) {
	suppliers, err := e.store.Suppliers()
	if err != nil {
		return 0, fmt.Errorf("чтение поставщиков: %w", err)
	}
	details, err := e.store.Details()
	if err != nil {
		return 0, fmt.Errorf("чтение деталей: %w", err)
	}
	attempts, err := e.store.FailedAttempts()
	if err != nil {
		return 0, fmt.Errorf("чтение журнала неудач: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("создание стиля заголовка: %w", err)
	}

	// Первый лист переименовываем, остальные создаём
	f.SetSheetName("Sheet1", sheetSuppliers)
	if _, err := f.NewSheet(sheetDetails); err != nil {
		return 0, fmt.Errorf("создание листа деталей: %w", err)
	}
	if _, err := f.NewSheet(sheetStats); err != nil {
		return 0, fmt.Errorf("создание листа статистики: %w", err)
	}

	if err := writeSuppliers(f, headerStyle, suppliers); err != nil {
		return 0, err
	}
	if err := writeDetails(f, headerStyle, details); err != nil {
		return 0, err
	}
	if err := writeStats(f, headerStyle, len(suppliers), len(details), len(attempts)); err != nil {
		return 0, err
	}

	if err := f.SaveAs(outputFile); err != nil {
		return 0, fmt.Errorf("сохранение файла %s: %w", outputFile, err)
	}

	utils.Infof("Экспорт завершён: %s (%d поставщиков, %d полей деталей)",
		outputFile, len(suppliers), len(details))
	return len(suppliers), nil
}

func writeSuppliers(f *excelize.File, headerStyle int, suppliers []models.Supplier) error {
	headers := []string{
		"№ участника", "Наименование", "БИН", "ИИН", "РНН",
		"ID поставщика", "Ссылка на карточку", "Детализирован", "Обновлено",
	}
	if err := writeHeader(f, sheetSuppliers, headerStyle, headers); err != nil {
		return err
	}

	for i, sup := range suppliers {
		row := i + 2
		values := []interface{}{
			sup.ParticipantNumber, sup.Name, sup.BIN, sup.IIN, sup.RNN,
			sup.SupplierID, sup.DetailURL, boolMark(sup.IsParsed),
			formatTime(sup.UpdatedAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetSuppliers, cell, &values); err != nil {
			return fmt.Errorf("запись строки поставщика %d: %w", row, err)
		}
	}

	f.SetColWidth(sheetSuppliers, "A", "A", 14)
	f.SetColWidth(sheetSuppliers, "B", "B", 50)
	f.SetColWidth(sheetSuppliers, "C", "E", 16)
	f.SetColWidth(sheetSuppliers, "F", "G", 40)
	return finishSheet(f, sheetSuppliers, len(headers), len(suppliers))
}

func writeDetails(f *excelize.File, headerStyle int, details []models.DetailField) error {
	headers := []string{"ID поставщика", "Раздел", "Поле", "Значение"}
	if err := writeHeader(f, sheetDetails, headerStyle, headers); err != nil {
		return err
	}

	for i, d := range details {
		row := i + 2
		values := []interface{}{d.SupplierID, d.Section, d.FieldName, d.FieldValue}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetDetails, cell, &values); err != nil {
			return fmt.Errorf("запись строки детали %d: %w", row, err)
		}
	}

	f.SetColWidth(sheetDetails, "A", "A", 36)
	f.SetColWidth(sheetDetails, "C", "C", 40)
	f.SetColWidth(sheetDetails, "D", "D", 60)
	return finishSheet(f, sheetDetails, len(headers), len(details))
}

func writeStats(f *excelize.File, headerStyle int, suppliers, details, failures int) error {
	headers := []string{"Показатель", "Значение"}
	if err := writeHeader(f, sheetStats, headerStyle, headers); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Всего поставщиков", suppliers},
		{"Всего полей деталей", details},
		{"Записей в журнале неудач", failures},
		{"Дата экспорта", time.Now().Format("2006-01-02 15:04:05")},
	}
	for i, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetStats, cell, &values); err != nil {
			return fmt.Errorf("запись строки статистики %d: %w", i+2, err)
		}
	}

	f.SetColWidth(sheetStats, "A", "A", 30)
	f.SetColWidth(sheetStats, "B", "B", 24)
	return nil
}

// writeHeader первая строка листа: жирная, на цветной заливке
func writeHeader(f *excelize.File, sheet string, style int, headers []string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return fmt.Errorf("запись заголовка листа %s: %w", sheet, err)
	}

	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("стиль заголовка листа %s: %w", sheet, err)
	}
	return nil
}

// finishSheet закрепление заголовка и автофильтр по всей таблице
func finishSheet(f *excelize.File, sheet string, cols, rows int) error {
	err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return fmt.Errorf("закрепление заголовка листа %s: %w", sheet, err)
	}

	if rows > 0 {
		last, _ := excelize.CoordinatesToCellName(cols, rows+1)
		if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
			return fmt.Errorf("автофильтр листа %s: %w", sheet, err)
		}
	}
	return nil
}

func boolMark(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
