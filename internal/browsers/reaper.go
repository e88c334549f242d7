package browsers

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/isikjon/parser-goszakupki.kz/internal/utils"
)

// ReapByMarker принудительно завершает процессы chrome/chromium, в
// командной строке которых встречается маркер этого прогона (он входит
// в путь каталога профиля). Возвращает количество убитых процессов.
// Чужие браузеры маркер не несут и не затрагиваются.
func ReapByMarker(marker string) int {
	if marker == "" {
		return 0
	}

	procs, err := process.Processes()
	if err != nil {
		utils.Errorf("Ошибка перечисления процессов: %v", err)
		return 0
	}

	killed := 0
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(name), "chrom") {
			continue
		}

		cmdline, err := p.Cmdline()
		if err != nil {
			continue
		}
		if !strings.Contains(cmdline, marker) {
			continue
		}

		if err := p.Kill(); err != nil {
			utils.Debugf("Не удалось убить процесс %d: %v", p.Pid, err)
			continue
		}
		killed++
		utils.Debugf("Убит процесс браузера: PID %d", p.Pid)
	}

	return killed
}
