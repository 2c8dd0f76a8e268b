package sensor

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
	"github.com/mitchellh/go-homedir"
)

// FileConfig reads a temperature from a file, e.g. a hwmon temp*_input
// (Divisor 1000) or a value written by another program.
type FileConfig struct {
	Path     string
	Divisor  float64
	Interval time.Duration
}

type File struct {
	cfg FileConfig
	fn  Func
}

func NewFile(cfg FileConfig, fn Func) (*File, error) {
	if cfg.Path == "" {
		return nil, errors.New("file sensor: Path is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Divisor == 0 {
		cfg.Divisor = 1
	}
	return &File{cfg: cfg, fn: fn}, nil
}

// Read returns the current state. An unreadable file reports unavailable.
func (s *File) Read() string {
	path, err := homedir.Expand(s.cfg.Path)
	if err != nil {
		ui.Warning("Unable to resolve home dir for file sensor: %v", err)
		return thermostat.StateUnavailable
	}

	data, err := os.ReadFile(path)
	if err != nil {
		ui.Warning("Unable to read file sensor %s: %v", path, err)
		return thermostat.StateUnavailable
	}
	text := strings.TrimSpace(string(data))
	if s.cfg.Divisor == 1 || text == "" {
		return text
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// let the thermostat count and log the bad reading
		return text
	}
	return strconv.FormatFloat(v/s.cfg.Divisor, 'f', -1, 64)
}

// Run reports a reading right away and then every interval until ctx is done.
func (s *File) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.fn(s.Read())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
