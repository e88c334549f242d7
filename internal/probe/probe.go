package probe

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/isikjon/parser-goszakupki.kz/internal/parsers"
	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

// Result итог предварительной проверки реестра
type Result struct {
	Reachable  bool
	StatusCode int
	LastPage   int // 0, если пагинатор не найден
	Elapsed    time.Duration
}

// pageParam извлекает номер страницы из ссылок пагинатора
var pageParam = regexp.MustCompile(`[?&]page=(\d+)`)

// Check лёгкая проверка перед стартом пула: одна первая страница реестра
// обычным HTTP-запросом, без браузера. По ссылкам пагинатора оценивается
// последняя доступная страница; если пагинатор не найден, LastPage
// остаётся нулевым и действует верхняя граница из конфигурации.
func Check(baseURL string, recordsPerPage int, timeout time.Duration) (*Result, error) {
	startTime := time.Now()
	res := &Result{}

	c := colly.NewCollector()
	c.SetRequestTimeout(timeout)
	c.WithTransport(&http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	})

	c.OnResponse(func(r *colly.Response) {
		res.Reachable = true
		res.StatusCode = r.StatusCode
	})

	// Последняя страница — максимум среди ссылок пагинатора
	c.OnHTML("ul.pagination a[href]", func(e *colly.HTMLElement) {
		m := pageParam.FindStringSubmatch(e.Attr("href"))
		if m == nil {
			return
		}
		if page, err := strconv.Atoi(m[1]); err == nil && page > res.LastPage {
			res.LastPage = page
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			res.StatusCode = r.StatusCode
		}
		utils.Warnf("Проверка реестра не удалась: %v", err)
	})

	url := parsers.ListingURL(baseURL, recordsPerPage, 1)
	utils.Debugf("Проверка доступности реестра: %s", url)

	if err := c.Visit(url); err != nil {
		return res, fmt.Errorf("проверка реестра: %w", err)
	}
	c.Wait()

	res.Elapsed = time.Since(startTime)
	if res.LastPage > 0 {
		utils.Infof("Реестр доступен (HTTP %d), последняя страница: %d", res.StatusCode, res.LastPage)
	} else {
		utils.Infof("Реестр доступен (HTTP %d), пагинатор не распознан", res.StatusCode)
	}
	return res, nil
}
