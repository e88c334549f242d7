package browsers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

// Наборы косметических вариаций: размер окна и user-agent выбираются
// по индексу сессии по модулю, на корректность не влияют.
var (
	windowSizes = []string{
		"1920,1080",
		"1366,768",
		"1440,900",
		"1600,900",
		"1280,720",
	}

	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
)

// Session одна браузерная сессия пула: собственный процесс браузера,
// изолированный каталог профиля и одна переиспользуемая вкладка.
// Сессией монопольно владеет пул; каталог профиля и процесс никто не
// трогает вне teardown.
type Session struct {
	ID         int
	ProfileDir string

	browser *rod.Browser
	page    *rod.Page
}

// NewSession запускает браузер с изолированным профилем.
// marker входит в имя каталога профиля и попадает в командную строку
// процесса — по нему reaper находит процессы именно этого прогона.
func NewSession(id int, marker string, headless bool) (*Session, error) {
	profileDir, err := os.MkdirTemp("", fmt.Sprintf("goszakup_profile_%s_%d_*", marker, id))
	if err != nil {
		return nil, fmt.Errorf("создание каталога профиля: %w", err)
	}

	l := launcher.New().
		Headless(headless).
		Set("user-data-dir", profileDir).
		Set("window-size", windowSizes[id%len(windowSizes)]).
		Set("user-agent", userAgents[id%len(userAgents)]).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("disable-blink-features", "AutomationControlled")

	controlURL, err := l.Launch()
	if err != nil {
		os.RemoveAll(profileDir)
		return nil, fmt.Errorf("запуск браузера %d: %w", id, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		os.RemoveAll(profileDir)
		return nil, fmt.Errorf("подключение к браузеру %d: %w", id, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		os.RemoveAll(profileDir)
		return nil, fmt.Errorf("создание вкладки браузера %d: %w", id, err)
	}

	utils.Debugf("Браузер %d создан (%s)", id, modeText(headless))

	return &Session{
		ID:         id,
		ProfileDir: profileDir,
		browser:    browser,
		page:       page,
	}, nil
}

// FetchRendered переходит по адресу, ждёт появления элемента selector не
// дольше timeout и возвращает отрендеренный HTML страницы. Это
// единственная точка блокировки задачи.
func (s *Session) FetchRendered(ctx context.Context, url, selector string, timeout time.Duration) (string, error) {
	page := s.page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("навигация на %s: %w", url, err)
	}

	if _, err := page.Timeout(timeout).Element(selector); err != nil {
		return "", fmt.Errorf("ожидание элемента %q на %s: %w", selector, url, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("чтение HTML %s: %w", url, err)
	}
	return html, nil
}

// Close корректно завершает браузер сессии
func (s *Session) Close() error {
	return s.browser.Close()
}

func modeText(headless bool) string {
	if headless {
		return "headless"
	}
	return "с интерфейсом"
}
