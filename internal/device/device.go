package device

import (
	"errors"
	"os"

	"github.com/Agrid-Dev/dualstat/internal/persistence"
	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

// Device is one thermostat identified by ID.
type Device struct {
	ID string
	T  *thermostat.Thermostat
}

// New builds the thermostat for id. With a store, the state saved by a
// previous run is restored and every later change is saved again.
func New(id string, cfg thermostat.Config, driver thermostat.Driver, store persistence.Persistence, opts ...thermostat.Option) (*Device, error) {
	t, err := thermostat.New(cfg, driver, opts...)
	if err != nil {
		return nil, err
	}
	d := &Device{ID: id, T: t}
	if store == nil {
		return d, nil
	}

	rs, err := store.LoadState(id)
	switch {
	case errors.Is(err, os.ErrNotExist):
		ui.Info("No saved state for %s, starting from configuration", id)
	case err != nil:
		ui.Warning("Unable to load saved state for %s, starting from configuration: %v", id, err)
	default:
		t.Restore(rs)
		ui.Info("Restored state for %s: mode %s", id, t.Mode())
	}

	saver := persistence.NewSaver(store, id, t.Get)
	saver.Save()
	t.Subscribe(saver.Save)
	return d, nil
}
