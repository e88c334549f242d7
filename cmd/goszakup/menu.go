package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/isikjon/parser-goszakupki.kz/internal/core"
)

// Preset параметры прогона, выбранные в меню
type Preset struct {
	Browsers  int
	StartPage int
	EndPage   int
	Headless  bool
}

// RunMenu интерактивное меню с пресетами запуска.
// Возвращает ok=false, если пользователь выбрал выход или ввод закончился.
// Тяжёлые пресеты требуют явного подтверждения.
func RunMenu(in io.Reader, config *core.Config) (Preset, bool) {
	reader := bufio.NewReader(in)

	for {
		fmt.Println()
		fmt.Println("🚀 ТУРБО ПАРАЛЛЕЛЬНЫЙ ПАРСЕР ГОСЗАКУПОК")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("1. 🎯 Демо-режим (20 браузеров, страницы 1-100)")
		fmt.Println("2. ⚡ Быстрый режим (50 браузеров, страницы 1-1000)")
		fmt.Println("3. 🔥 Полный режим (100 браузеров, страницы 1-10000)")
		fmt.Println("4. 💥 Экстремальный режим (200 браузеров, страницы 1-10000)")
		fmt.Println("5. 👀 Режим с интерфейсом (10 браузеров, страницы 1-50)")
		fmt.Println("6. ⚙️  Свои настройки")
		fmt.Println("0. 🚪 Выход")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Print("Выберите режим: ")

		choice, err := readLine(reader)
		if err != nil {
			return Preset{}, false
		}

		switch choice {
		case "0", "q", "exit":
			return Preset{}, false
		case "1":
			return Preset{Browsers: 20, StartPage: 1, EndPage: 100, Headless: true}, true
		case "2":
			return Preset{Browsers: 50, StartPage: 1, EndPage: 1000, Headless: true}, true
		case "3":
			if confirm(reader, "⚠️  Полный режим создаст 100 браузеров. Продолжить?") {
				return Preset{Browsers: 100, StartPage: 1, EndPage: 10000, Headless: true}, true
			}
		case "4":
			if confirm(reader, "⚠️  Экстремальный режим создаст 200 браузеров и потребует много памяти. Продолжить?") {
				return Preset{Browsers: 200, StartPage: 1, EndPage: 10000, Headless: true}, true
			}
		case "5":
			return Preset{Browsers: 10, StartPage: 1, EndPage: 50, Headless: false}, true
		case "6":
			if preset, ok := customPreset(reader, config); ok {
				return preset, true
			}
		default:
			fmt.Println("❌ Неверный выбор, попробуйте ещё раз")
		}
	}
}

// customPreset ввод своих настроек с проверкой границ
func customPreset(reader *bufio.Reader, config *core.Config) (Preset, bool) {
	browsers, ok := readInt(reader,
		fmt.Sprintf("Количество браузеров (1-%d): ", config.Pool.MaxSize),
		1, config.Pool.MaxSize)
	if !ok {
		return Preset{}, false
	}

	start, ok := readInt(reader,
		fmt.Sprintf("Начальная страница (1-%d): ", config.Parser.MaxPages),
		1, config.Parser.MaxPages)
	if !ok {
		return Preset{}, false
	}

	end, ok := readInt(reader,
		fmt.Sprintf("Конечная страница (%d-%d): ", start, config.Parser.MaxPages),
		start, config.Parser.MaxPages)
	if !ok {
		return Preset{}, false
	}

	headless := confirm(reader, "Режим без интерфейса?")

	return Preset{Browsers: browsers, StartPage: start, EndPage: end, Headless: headless}, true
}

// readInt читает целое в границах [min, max]; повторяет запрос при
// неверном вводе, возвращает ok=false при закрытии ввода
func readInt(reader *bufio.Reader, prompt string, min, max int) (int, bool) {
	for {
		fmt.Print(prompt)
		line, err := readLine(reader)
		if err != nil {
			return 0, false
		}

		value, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println("❌ Введите целое число")
			continue
		}
		if value < min || value > max {
			fmt.Printf("❌ Значение должно быть от %d до %d\n", min, max)
			continue
		}
		return value, true
	}
}

// confirm вопрос да/нет; по умолчанию нет
func confirm(reader *bufio.Reader, prompt string) bool {
	fmt.Printf("%s (y/N): ", prompt)
	line, err := readLine(reader)
	if err != nil {
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes", "д", "да":
		return true
	}
	return false
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
