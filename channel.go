package cantp

// Role distinguishes an RX channel (reassembling an incoming segmented
// message) from a TX channel (segmenting an outgoing one). The state slot
// numbers below are shared between both roles — state 1/2/3 mean
// RECEIVING_SF/FF/CF on an RX channel and TRANSMITTING_SF/FF/CF on a TX
// channel — so a single state type serves both. dispatch.go's onPeriod and
// onTimeout switch on Role into the RX-side handlers (dispatch_rx.go) or the
// TX-side handlers (dispatch_tx.go); onTxConfirm handles both roles.
type Role uint8

const (
	RoleRx Role = iota
	RoleTx
)

// state is the per-channel status slot (spec §3, §9). Slot 4 means
// TRANSMITTING_FC on an RX channel (it is about to answer a First Frame) and
// RECEIVING_FC on a TX channel (it is waiting on the peer's Flow Control).
type state uint8

const (
	stateIdle state = iota
	stateSF
	stateFF
	stateCF
	stateFC
)

// subState tracks whether a channel has a frame (a CF, or an FC on an RX
// channel) handed to the driver and not yet confirmed; sendNextCF and sendFC
// use it to avoid resubmitting. STmin pacing itself is Channel.txDelay.
type subState uint8

const (
	subIdle subState = iota
	subTransmitting
	subReceiving
)

// Channel is one configured RX or TX channel record (spec §3). Exactly one
// Channel exists per entry of the static configuration table; none are ever
// allocated after startup.
type Channel struct {
	Role Role
	Cfg  *ChannelConfig
	pci  *PCIDescriptor

	status state
	sub    subState

	frame [maxFrameSize]byte // last/next wire frame, laid out per pci

	sn  uint8 // last sequence number sent/accepted (0 after the FF), low nibble only
	wft uint8 // remaining Wait Frame Transmissions budget

	cfCnt     uint16 // consecutive frames still expected/to send
	lastSize  uint8  // payload size of the final CF (includes the +1 convention, see segmentation.go)
	totalSize uint16 // full message size, as declared by the FF

	bs         uint8      // block size counter for the in-flight block
	stTicks    uint16     // peer-requested STmin, in scheduler ticks
	flowStatus FlowStatus // last/pending FC flow status (CTS/WAIT/OVERFLOW)

	timer   uint16 // countdown in ticks, 0 means disarmed
	txDelay uint16 // STmin pacing countdown between CFs

	// bufferOwned replaces the original CANTP_IS_GETTING_BUFFER(chn) =
	// status > RECEIVING_FF ordering trick (spec §9 Design Notes) with an
	// explicit flag: true once Diag has handed this channel a buffer
	// (StartOfReception returned OK) and false again once the channel goes
	// back to Idle.
	bufferOwned bool
}

// NewChannel builds a Channel record from static configuration. cfg must
// outlive the Channel; no copy of cfg's internals is made since the table
// itself never changes after startup.
func NewChannel(role Role, cfg *ChannelConfig) *Channel {
	return &Channel{
		Role: role,
		Cfg:  cfg,
		pci:  pciFor(cfg),
	}
}

func (c *Channel) gotoIdle() {
	c.status = stateIdle
	c.sub = subIdle
	c.timer = 0
	c.bufferOwned = false
}

func (c *Channel) initTimer(ticks uint16) {
	c.timer = ticks
}
