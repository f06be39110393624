package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// PairSet — активный набор торговых пар в файле: по символу на строку,
// без дубликатов. Каждая мутация — read-modify-write под мьютексом с
// атомарной заменой файла (temp + rename), чтобы параллельный читатель
// никогда не видел частичной записи.
type PairSet struct {
	mu   sync.Mutex
	path string
}

func NewPairSet(path string) *PairSet {
	return &PairSet{path: path}
}

// Load возвращает текущий набор. Отсутствующий файл — пустой набор.
func (s *PairSet) Load() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readLines(s.path)
}

// Len — размер набора.
func (s *PairSet) Len() (int, error) {
	pairs, err := s.Load()
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// Contains — есть ли символ в наборе.
func (s *PairSet) Contains(symbol string) (bool, error) {
	pairs, err := s.Load()
	if err != nil {
		return false, err
	}
	for _, p := range pairs {
		if p == symbol {
			return true, nil
		}
	}
	return false, nil
}

// Add добавляет символ в конец набора. Возвращает false, если символ
// уже присутствовал.
func (s *PairSet) Add(symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs, err := readLines(s.path)
	if err != nil {
		return false, err
	}
	for _, p := range pairs {
		if p == symbol {
			return false, nil
		}
	}
	pairs = append(pairs, symbol)
	if err := writeLinesAtomic(s.path, pairs); err != nil {
		return false, err
	}
	return true, nil
}

// Remove убирает символ из набора. Возвращает false, если символа не было.
func (s *PairSet) Remove(symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs, err := readLines(s.path)
	if err != nil {
		return false, err
	}
	out := pairs[:0]
	found := false
	for _, p := range pairs {
		if p == symbol {
			found = true
			continue
		}
		out = append(out, p)
	}
	if !found {
		return false, nil
	}
	if err := writeLinesAtomic(s.path, out); err != nil {
		return false, err
	}
	return true, nil
}

// ReadSymbols читает список символов из произвольного файла
// (вселенная сканера хранится в том же формате).
func ReadSymbols(path string) ([]string, error) {
	return readLines(path)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

func writeLinesAtomic(path string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return writeFileAtomic(path, []byte(b.String()))
}

// writeFileAtomic пишет во временный файл рядом с целевым и подменяет
// его rename-ом: читатель видит либо старое содержимое, либо новое.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "write temp")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close temp")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}
