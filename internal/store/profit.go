package store

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ProfitLedger — накопленный профит: одно число текстом в файле.
// Отсутствующий файл означает ноль. Запись атомарная, как у PairSet.
type ProfitLedger struct {
	mu   sync.Mutex
	path string
}

func NewProfitLedger(path string) *ProfitLedger {
	return &ProfitLedger{path: path}
}

// Load читает текущее значение.
func (l *ProfitLedger) Load() (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Add прибавляет дельту (может быть отрицательной) и сохраняет итог.
// Возвращает новое значение.
func (l *ProfitLedger) Add(delta float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total, err := l.read()
	if err != nil {
		return 0, err
	}
	total += delta
	value := strconv.FormatFloat(total, 'f', -1, 64)
	if err := writeFileAtomic(l.path, []byte(value)); err != nil {
		return 0, err
	}
	return total, nil
}

func (l *ProfitLedger) read() (float64, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "read %s", l.path)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return 0, nil
	}
	total, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse profit %q", raw)
	}
	return total, nil
}
