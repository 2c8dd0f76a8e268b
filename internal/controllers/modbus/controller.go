package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/dualstat/internal/ports"
	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

// Register map.
//
//	holding 0  target low (x100)     read/write
//	holding 1  target high (x100)    read/write
//	holding 2  hvac mode             read/write
//	input   0  current temperature   read, UnknownTemperature until a reading arrived
//	input   1  hvac action           read
//	discrete 0 heater on             read
//	discrete 1 cooler on             read
const (
	HoldingTargetLow  = 0
	HoldingTargetHigh = 1
	HoldingMode       = 2
	holdingCount      = 3

	InputTemperature = 0
	InputAction      = 1
	inputCount       = 2

	DiscreteHeater = 0
	DiscreteCooler = 1
	discreteCount  = 2
)

// UnknownTemperature is reported while the thermostat has no reading.
const UnknownTemperature uint16 = 0x8000

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
}

type Controller struct {
	svc ports.ThermostatService
	cfg Config

	serv *mbserver.Server
}

func New(svc ports.ThermostatService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{svc: svc, cfg: cfg}, nil
}

// Run starts the Modbus server and registers handlers that apply writes immediately and
// provide reads directly from the thermostat service. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.
	serv.RegisterFunctionHandler(2, c.readDiscreteInputs)
	serv.RegisterFunctionHandler(3, c.readHoldingRegisters)
	serv.RegisterFunctionHandler(4, c.readInputRegisters)
	serv.RegisterFunctionHandler(6, c.writeSingleRegister)
	serv.RegisterFunctionHandler(16, c.writeMultipleRegisters)

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// parseRead validates a read request against a table of size count.
func parseRead(frame mbserver.Framer, count, maxQty int) (start, qty int, exc *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start = int(binary.BigEndian.Uint16(data[0:2]))
	qty = int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > maxQty {
		return 0, 0, &mbserver.IllegalDataValue
	}
	if start+qty > count {
		return 0, 0, &mbserver.IllegalDataAddress
	}
	return start, qty, nil
}

func registersResponse(regs []uint16) []byte {
	byteCount := len(regs) * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
	}
	return resp
}

// Read Discrete Inputs (function 2) - observed actuator states.
func (c *Controller) readDiscreteInputs(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := parseRead(frame, discreteCount, 2000)
	if exc != nil {
		return []byte{}, exc
	}
	snap := c.svc.Get()
	bits := []bool{snap.HeaterOn, snap.CoolerOn}

	var b byte
	for i := 0; i < qty; i++ {
		if bits[start+i] {
			b |= 1 << uint(i)
		}
	}
	return []byte{1, b}, &mbserver.Success
}

// Read Holding Registers (function 3).
func (c *Controller) readHoldingRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := parseRead(frame, holdingCount, 125)
	if exc != nil {
		return []byte{}, exc
	}
	snap := c.svc.Get()
	low, high := currentRange(snap)
	table := []uint16{encodeTemp(low), encodeTemp(high), uint16(snap.Mode)}
	return registersResponse(table[start : start+qty]), &mbserver.Success
}

// Read Input Registers (function 4).
func (c *Controller) readInputRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := parseRead(frame, inputCount, 125)
	if exc != nil {
		return []byte{}, exc
	}
	snap := c.svc.Get()
	temp := UnknownTemperature
	if snap.CurrentTemperature != nil {
		temp = encodeTemp(*snap.CurrentTemperature)
	}
	table := []uint16{temp, uint16(snap.Action)}
	return registersResponse(table[start : start+qty]), &mbserver.Success
}

// Write Single Register (function 6).
func (c *Controller) writeSingleRegister(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := int(binary.BigEndian.Uint16(data[0:2]))
	value := binary.BigEndian.Uint16(data[2:4])

	if exc := c.apply(map[int]uint16{addr: value}); exc != nil {
		return []byte{}, exc
	}

	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

// Write Multiple Registers (function 16). Low and high written together are
// applied as one range change.
func (c *Controller) writeMultipleRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	d := frame.GetData()
	if len(d) < 5 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(d[0:2])
	quantity := binary.BigEndian.Uint16(d[2:4])
	byteCount := int(d[4])
	if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
		return []byte{}, &mbserver.IllegalDataValue
	}

	writes := make(map[int]uint16, quantity)
	for i := 0; i < int(quantity); i++ {
		writes[int(start)+i] = binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
	}
	if exc := c.apply(writes); exc != nil {
		return []byte{}, exc
	}

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], start)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return resp, &mbserver.Success
}

func (c *Controller) apply(writes map[int]uint16) *mbserver.Exception {
	for addr := range writes {
		if addr < 0 || addr >= holdingCount {
			return &mbserver.IllegalDataAddress
		}
	}

	// validate everything before applying anything
	modeRaw, hasMode := writes[HoldingMode]
	mode := thermostat.Mode(modeRaw)
	if hasMode && !mode.Valid() {
		return &mbserver.IllegalDataValue
	}

	lowRaw, hasLow := writes[HoldingTargetLow]
	highRaw, hasHigh := writes[HoldingTargetHigh]
	hasRange := hasLow || hasHigh
	low, high := currentRange(c.svc.Get())
	if hasLow {
		low = decodeTemp(lowRaw)
	}
	if hasHigh {
		high = decodeTemp(highRaw)
	}
	if hasRange && high < low {
		return &mbserver.IllegalDataValue
	}

	if hasMode {
		if err := c.svc.SetMode(mode); err != nil {
			return &mbserver.IllegalDataValue
		}
	}
	if hasRange {
		if err := c.svc.SetTargetRange(low, high); err != nil {
			return &mbserver.IllegalDataValue
		}
	}
	return nil
}

func currentRange(snap thermostat.Snapshot) (low, high float64) {
	low, high = snap.MinTemp, snap.MaxTemp
	if snap.TargetLow != nil {
		low = *snap.TargetLow
	}
	if snap.TargetHigh != nil {
		high = *snap.TargetHigh
	}
	return low, high
}

const TemperatureScale int = 100

func encodeTemp(v float64) uint16 {
	r := min(max(int(math.Round(v*float64(TemperatureScale))), math.MinInt16+1), math.MaxInt16)
	return uint16(int16(r))
}

func decodeTemp(u uint16) float64 {
	i := int16(u)
	return float64(i) / float64(TemperatureScale)
}
