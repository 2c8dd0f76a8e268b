package actuator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// ModbusConfig describes a relay board reachable over Modbus TCP.
type ModbusConfig struct {
	Addr       string
	UnitID     byte
	HeaterCoil uint16
	CoolerCoil uint16
	Timeout    time.Duration
}

// Modbus drives the heater and cooler relays as coils.
type Modbus struct {
	observed
	cfg ModbusConfig

	handler *modbus.TCPClientHandler
	// clientMu serializes requests on the shared connection.
	clientMu sync.Mutex
	client   modbus.Client
}

func NewModbus(cfg ModbusConfig) (*Modbus, error) {
	if cfg.Addr == "" {
		return nil, errors.New("modbus actuator: Addr is required")
	}
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus actuator: UnitID is required (non-zero)")
	}
	if cfg.HeaterCoil == cfg.CoolerCoil {
		return nil, errors.New("modbus actuator: heater and cooler need distinct coils")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Modbus{observed: newObserved(), cfg: cfg}, nil
}

// Connect opens the TCP connection and reads the current coil states.
func (d *Modbus) Connect() error {
	h := modbus.NewTCPClientHandler(d.cfg.Addr)
	h.SlaveId = d.cfg.UnitID
	h.Timeout = d.cfg.Timeout
	if err := h.Connect(); err != nil {
		return fmt.Errorf("modbus actuator connect %s: %w", d.cfg.Addr, err)
	}
	d.handler = h
	d.client = modbus.NewClient(h)
	return d.Refresh()
}

func (d *Modbus) Close() error {
	if d.handler == nil {
		return nil
	}
	return d.handler.Close()
}

func (d *Modbus) coil(a thermostat.Actuator) uint16 {
	if a == thermostat.Cooler {
		return d.cfg.CoolerCoil
	}
	return d.cfg.HeaterCoil
}

func (d *Modbus) TurnOn(a thermostat.Actuator)  { d.write(a, true) }
func (d *Modbus) TurnOff(a thermostat.Actuator) { d.write(a, false) }

func (d *Modbus) write(a thermostat.Actuator, on bool) {
	value := coilOff
	if on {
		value = coilOn
	}

	d.clientMu.Lock()
	_, err := d.client.WriteSingleCoil(d.coil(a), value)
	d.clientMu.Unlock()
	if err != nil {
		ui.Error("modbus actuator: write %s coil %d: %v", a, d.coil(a), err)
		return
	}
	d.set(a, on)
}

// Refresh reads both coils and reports any change made behind our back.
func (d *Modbus) Refresh() error {
	for _, a := range []thermostat.Actuator{thermostat.Heater, thermostat.Cooler} {
		d.clientMu.Lock()
		res, err := d.client.ReadCoils(d.coil(a), 1)
		d.clientMu.Unlock()
		if err != nil {
			return fmt.Errorf("read %s coil %d: %w", a, d.coil(a), err)
		}
		if len(res) < 1 {
			return fmt.Errorf("read %s coil %d: empty response", a, d.coil(a))
		}
		d.set(a, res[0]&0x01 == 1)
	}
	return nil
}

// Poll refreshes the coil states every interval until ctx is done.
func (d *Modbus) Poll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Refresh(); err != nil {
				ui.Warning("modbus actuator: %v", err)
			}
		}
	}
}
