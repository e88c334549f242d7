package models

import "testing"

// TestExtractSupplierID извлечение идентификатора из ссылки на карточку
func TestExtractSupplierID(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{"обычная ссылка", "/ru/registry/show_supplier/12345", "12345"},
		{"абсолютная ссылка", "https://www.goszakup.gov.kz/ru/registry/show_supplier/98765", "98765"},
		{"ссылка с query-параметрами", "/ru/registry/show_supplier/555?tab=info", "555"},
		{"ссылка с якорем", "/ru/registry/show_supplier/777#details", "777"},
		{"ссылка без маркера", "/ru/registry/supplierreg?page=2", ""},
		{"пустой идентификатор", "/ru/registry/show_supplier/", ""},
		{"пустая строка", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSupplierID(tt.href)
			if got != tt.want {
				t.Errorf("ExtractSupplierID(%q) = %q, ожидалось %q", tt.href, got, tt.want)
			}
		})
	}
}

// TestNewSupplier сборка записи из ячеек строки таблицы
func TestNewSupplier(t *testing.T) {
	cells := []string{" 101 ", "ТОО Ромашка", "123456789012", "", "600400123456"}

	t.Run("корректная строка", func(t *testing.T) {
		sup, err := NewSupplier(cells, "/ru/registry/show_supplier/42")
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if sup.ParticipantNumber != "101" {
			t.Errorf("номер участника = %q, ожидалось %q (с обрезкой пробелов)", sup.ParticipantNumber, "101")
		}
		if sup.Name != "ТОО Ромашка" {
			t.Errorf("наименование = %q", sup.Name)
		}
		if sup.SupplierID != "42" {
			t.Errorf("идентификатор = %q, ожидалось %q", sup.SupplierID, "42")
		}
		if sup.DetailURL != "/ru/registry/show_supplier/42" {
			t.Errorf("ссылка на карточку = %q", sup.DetailURL)
		}
		if sup.IsParsed {
			t.Error("новая запись не должна быть помечена как детализированная")
		}
	})

	t.Run("меньше пяти ячеек", func(t *testing.T) {
		_, err := NewSupplier([]string{"1", "2", "3", "4"}, "/ru/registry/show_supplier/42")
		if err == nil {
			t.Error("ожидалась ошибка для строки из четырёх ячеек")
		}
	})

	t.Run("ссылка без идентификатора", func(t *testing.T) {
		_, err := NewSupplier(cells, "/ru/registry/supplierreg")
		if err == nil {
			t.Error("ожидалась ошибка для ссылки без идентификатора")
		}
	})

	t.Run("пустая ссылка", func(t *testing.T) {
		_, err := NewSupplier(cells, "")
		if err == nil {
			t.Error("ожидалась ошибка для пустой ссылки")
		}
	})
}
