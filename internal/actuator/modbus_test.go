package actuator

import (
	"net"
	"testing"
	"time"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

// startRelayBoard runs an in-process Modbus server with the default coil table.
func startRelayBoard(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	serv := mbserver.NewServer()
	require.NoError(t, serv.ListenTCP(addr))
	t.Cleanup(serv.Close)
	time.Sleep(50 * time.Millisecond)
	return addr
}

func TestNewModbus_Validation(t *testing.T) {
	_, err := NewModbus(ModbusConfig{UnitID: 1, CoolerCoil: 1})
	assert.Error(t, err, "missing address")

	_, err = NewModbus(ModbusConfig{Addr: "x:502", CoolerCoil: 1})
	assert.Error(t, err, "missing unit id")

	_, err = NewModbus(ModbusConfig{Addr: "x:502", UnitID: 1})
	assert.Error(t, err, "same coil for both")

	d, err := NewModbus(ModbusConfig{Addr: "x:502", UnitID: 1, CoolerCoil: 1})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d.cfg.Timeout)
}

func TestModbus_WritesCoils(t *testing.T) {
	addr := startRelayBoard(t)
	d, err := NewModbus(ModbusConfig{Addr: addr, UnitID: 1, HeaterCoil: 4, CoolerCoil: 5})
	require.NoError(t, err)
	require.NoError(t, d.Connect())
	defer d.Close()

	rec := &recorder{}
	d.OnStateChange(rec.fn)

	d.TurnOn(thermostat.Heater)
	assert.True(t, d.IsOn(thermostat.Heater))
	assert.False(t, d.IsOn(thermostat.Cooler))

	// read back through a second client
	h := modbus.NewTCPClientHandler(addr)
	require.NoError(t, h.Connect())
	defer h.Close()
	res, err := modbus.NewClient(h).ReadCoils(4, 2)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), res[0])

	d.TurnOff(thermostat.Heater)
	assert.False(t, d.IsOn(thermostat.Heater))
	assert.Equal(t, []transition{
		{thermostat.Heater, thermostat.StateOn},
		{thermostat.Heater, thermostat.StateOff},
	}, rec.transitions())
}

func TestModbus_RefreshSeesExternalChanges(t *testing.T) {
	addr := startRelayBoard(t)
	d, err := NewModbus(ModbusConfig{Addr: addr, UnitID: 1, HeaterCoil: 0, CoolerCoil: 1})
	require.NoError(t, err)
	require.NoError(t, d.Connect())
	defer d.Close()

	rec := &recorder{}
	d.OnStateChange(rec.fn)

	h := modbus.NewTCPClientHandler(addr)
	require.NoError(t, h.Connect())
	defer h.Close()
	_, err = modbus.NewClient(h).WriteSingleCoil(1, coilOn)
	require.NoError(t, err)

	require.NoError(t, d.Refresh())
	assert.True(t, d.IsOn(thermostat.Cooler))
	assert.Equal(t, []transition{{thermostat.Cooler, thermostat.StateOn}}, rec.transitions())
}
