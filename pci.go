package cantp

// AddressingMode selects how target addressing is encoded on the wire.
// Standard addressing carries no TA byte; extended and mixed addressing
// both prefix every frame with one (mixed differs only at the application
// level in how the TA value is interpreted, not in frame layout).
type AddressingMode uint8

const (
	AddressingStandard AddressingMode = iota
	AddressingExtended
	AddressingMixed
)

// TargetAddressType distinguishes a 1:1 diagnostic exchange (Physical) from
// a 1:N broadcast request (Functional). Functional requests are always
// Single Frame only (spec §4.4).
type TargetAddressType uint8

const (
	TargetAddressPhysical TargetAddressType = iota
	TargetAddressFunctional
)

// PCIDescriptor holds the byte offsets and maximum payload sizes that differ
// between standard and extended/mixed addressing. Values below are taken
// directly from the addressing-mode PCI table of the original implementation
// rather than derived algebraically: maxFCDataSize in particular is the FC
// frame's own header length (fcStPos+1), not a function of the data frame's
// maxDataSize, and a generic formula gets it wrong.
type PCIDescriptor struct {
	PCIPos        int // offset of the PCI byte
	DataPos       int // offset of the first SF/CF data byte
	FFDataPos     int // offset of the first FF data byte
	FCBSPos       int // offset of BS within an FC frame
	FCSTPos       int // offset of STmin within an FC frame
	MaxDataSize   int // max SF/CF payload bytes
	MaxFFDataSize int // max FF payload bytes in the first frame
	MaxFCDataSize int // total length of an FC frame
}

// pciTable holds three descriptor rows: classical standard addressing,
// extended/mixed addressing, and CAN-FD standard addressing. This mirrors
// `gs_CanTpPciInfo` in FblCanTpCfg.c, which only ever has two rows
// (CANTP_NUMBER_OF_PCI_INFO == 2) with the first row's sizes widened under
// `#if (ENABLE_CANFD == ON)` — the extended/mixed row is never widened for
// CAN-FD in the original either, so that asymmetry is preserved here rather
// than "fixed": a channel needing both extended addressing and CAN-FD-sized
// frames is not a combination the original configuration ever produced.
const (
	pciRowStandard = iota
	pciRowExtendedMixed
	pciRowStandardFD
)

var pciTable = [3]PCIDescriptor{
	pciRowStandard: {
		PCIPos:        0,
		DataPos:       1,
		FFDataPos:     2,
		FCBSPos:       1,
		FCSTPos:       2,
		MaxDataSize:   7,
		MaxFFDataSize: 6,
		MaxFCDataSize: 3,
	},
	// Extended and mixed addressing share a layout: one leading TA byte
	// shifts every other offset by one.
	pciRowExtendedMixed: {
		PCIPos:        1,
		DataPos:       2,
		FFDataPos:     3,
		FCBSPos:       2,
		FCSTPos:       3,
		MaxDataSize:   6,
		MaxFFDataSize: 5,
		MaxFCDataSize: 4,
	},
	// CAN-FD standard addressing (FblCanTpCfg.c's ENABLE_CANFD branch):
	// offsets are unchanged from classical standard addressing, only the
	// payload ceilings grow to use the larger CAN-FD frame.
	pciRowStandardFD: {
		PCIPos:        0,
		DataPos:       1,
		FFDataPos:     2,
		FCBSPos:       1,
		FCSTPos:       2,
		MaxDataSize:   63,
		MaxFFDataSize: 62,
		MaxFCDataSize: 3,
	},
}

// pciFor returns the PCI descriptor for a channel's addressing mode and
// CAN-FD setting.
func pciFor(cfg *ChannelConfig) *PCIDescriptor {
	switch {
	case cfg.Type == AddressingStandard && cfg.FD:
		return &pciTable[pciRowStandardFD]
	case cfg.Type == AddressingStandard:
		return &pciTable[pciRowStandard]
	default:
		return &pciTable[pciRowExtendedMixed]
	}
}

// Frame type values, placed in the high nibble of the PCI byte.
const (
	pciTypeSF uint8 = 0x00
	pciTypeFF uint8 = 0x10
	pciTypeCF uint8 = 0x20
	pciTypeFC uint8 = 0x30
)

// Flow status values carried in the low nibble of an FC frame's PCI byte.
const (
	FlowStatusContinueToSend FlowStatus = 0
	FlowStatusWait           FlowStatus = 1
	FlowStatusOverflow       FlowStatus = 2
)

type FlowStatus uint8

// ffLengthThreshold is the largest length a First Frame can carry in its
// 12-bit length field. Lengths at or above this require an escape-length FF
// (a 0x00 length field followed by a 4-byte length), which this module does
// not support (spec §4 Non-goals).
const ffLengthThreshold = 0x1000

// maxFrameSize is CANTP_MAX_FRAME_SIZE: the largest wire frame this module
// ever builds or parses, classical CAN (8) or CAN-FD (64). Channel.frame and
// the codec's frame buffers are sized to this regardless of any one
// channel's own addressing mode, since a single scheduler mixes FD and
// non-FD channels.
const maxFrameSize = 64
