package utilities

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/juju/errors"
)

// RawLog guarda cada línea recibida en <dir>/<prefix>_YYYYMMDD.log.
// El archivo rota por día según la hora local.
type RawLog struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

func NewRawLog(dir, prefix string) (*RawLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Annotatef(err, "creando %s", dir)
	}
	return &RawLog{dir: dir, prefix: prefix, now: time.Now}, nil
}

// Filename devuelve el archivo del día de t.
func (l *RawLog) Filename(t time.Time) string {
	return filepath.Join(l.dir, l.prefix+"_"+t.Format("20060102")+".log")
}

// Record agrega "HH:MM:SS - <line>" al archivo del día.
func (l *RawLog) Record(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	day := now.Format("20060102")
	if l.file == nil || l.day != day {
		if l.file != nil {
			_ = l.file.Close()
		}
		f, err := os.OpenFile(l.Filename(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			l.file = nil
			return errors.Annotate(err, "abriendo log crudo")
		}
		l.file, l.day = f, day
	}
	_, err := l.file.WriteString(now.Format("15:04:05") + " - " + line + "\n")
	return errors.Annotate(err, "escribiendo log crudo")
}

func (l *RawLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
