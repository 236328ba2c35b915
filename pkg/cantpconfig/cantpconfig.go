// Package cantpconfig loads CanTp's static RX/TX channel tables from an
// INI-formatted file, one section per channel, following the same
// ini.v1-based parsing style the teacher repo uses for EDS files
// (pkg/od/parser_v1.go parses CANopen's EDS format, itself an INI document,
// the same way).
package cantpconfig

import (
	"fmt"
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/fbl/cantp"
)

// Table is a parsed configuration file: one slice of RX channel configs and
// one of TX channel configs, in section-appearance order.
type Table struct {
	Rx []cantp.ChannelConfig
	Tx []cantp.ChannelConfig
}

// Load parses file (a path, []byte, or io.Reader — anything ini.Load
// accepts) into a Table. Every channel section must specify Role (rx or
// tx), Type (standard, extended or mixed), RxId and TxId (hex, no 0x
// prefix), TimerA/TimerB/TimerC (milliseconds), BS and WFT (decimal), and
// STmin (hex byte). TAType defaults to physical when absent. FD (bool,
// optional, defaults to false) selects the CAN-FD-sized PCI row for a
// standard-addressed channel.
func Load(file any, periodMs uint16) (*Table, error) {
	doc, err := ini.Load(file)
	if err != nil {
		return nil, err
	}

	table := &Table{}
	for _, section := range doc.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		cfg, role, err := parseChannel(section, periodMs)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section.Name(), err)
		}
		switch role {
		case "rx":
			table.Rx = append(table.Rx, cfg)
		case "tx":
			table.Tx = append(table.Tx, cfg)
		default:
			return nil, fmt.Errorf("section %s: role must be rx or tx, got %q", section.Name(), role)
		}
	}
	return table, nil
}

func parseChannel(section *ini.Section, periodMs uint16) (cantp.ChannelConfig, string, error) {
	var cfg cantp.ChannelConfig

	role := section.Key("Role").String()

	switch section.Key("Type").String() {
	case "extended":
		cfg.Type = cantp.AddressingExtended
	case "mixed":
		cfg.Type = cantp.AddressingMixed
	default:
		cfg.Type = cantp.AddressingStandard
	}

	switch section.Key("TAType").String() {
	case "functional":
		cfg.TAType = cantp.TargetAddressFunctional
	default:
		cfg.TAType = cantp.TargetAddressPhysical
	}

	cfg.FD, _ = section.Key("FD").Bool()

	rxID, err := strconv.ParseUint(section.Key("RxId").String(), 16, 32)
	if err != nil {
		return cfg, role, fmt.Errorf("RxId: %w", err)
	}
	txID, err := strconv.ParseUint(section.Key("TxId").String(), 16, 32)
	if err != nil {
		return cfg, role, fmt.Errorf("TxId: %w", err)
	}
	cfg.RxID = uint32(rxID)
	cfg.TxID = uint32(txID)

	timerAMs, _ := section.Key("TimerA").Uint()
	timerBMs, _ := section.Key("TimerB").Uint()
	timerCMs, _ := section.Key("TimerC").Uint()
	cfg.TimerA = cantp.MsToTicks(uint16(timerAMs), periodMs)
	cfg.TimerB = cantp.MsToTicks(uint16(timerBMs), periodMs)
	cfg.TimerC = cantp.MsToTicks(uint16(timerCMs), periodMs)

	ta, _ := section.Key("TA").Uint()
	cfg.TA = uint8(ta)

	stMin, _ := strconv.ParseUint(section.Key("STmin").String(), 16, 8)
	cfg.STmin = uint8(stMin)

	bs, _ := section.Key("BS").Uint()
	cfg.BS = uint8(bs)

	wft, _ := section.Key("WFT").Uint()
	cfg.WFT = uint8(wft)

	return cfg, role, nil
}
