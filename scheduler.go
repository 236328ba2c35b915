package cantp

import (
	"github.com/sirupsen/logrus"
)

// ChannelHandle addresses a configured TX channel from the outside without
// exposing the underlying table (spec.md's Cantp_Transmit(handle, size)
// implies channels are addressed by an opaque handle).
type ChannelHandle int

// CanTp is the transport layer aggregate: the full set of configured RX and
// TX channels plus their collaborators (spec §9's recommendation to group
// global state into one struct instead of scattered package globals).
type CanTp struct {
	log *logrus.Logger

	diag Diag
	drv  CanDriver

	rx []*Channel
	tx []*Channel

	// physicalTx records the first physically addressed TX channel (or the
	// first TX channel if none is physical), chosen by TAType rather than
	// by indexing the table with an address-type constant. Nothing reads it:
	// halfDuplexBusy scans every physically addressed channel instead.
	physicalTx *Channel

	halfDuplex bool
	periodMs   uint16
}

// NewCanTp builds the scheduler from static RX/TX configuration tables. Both
// tables are copied into owned Channel records; nothing is retained from the
// config slices themselves after this call.
func NewCanTp(diag Diag, drv CanDriver, rxCfgs []ChannelConfig, txCfgs []ChannelConfig, periodMs uint16, halfDuplex bool, log *logrus.Logger) (*CanTp, error) {
	if diag == nil || drv == nil {
		return nil, ErrIllegalArgument
	}
	if len(txCfgs) == 0 {
		return nil, ErrIllegalArgument
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	t := &CanTp{
		log:        log,
		diag:       diag,
		drv:        drv,
		halfDuplex: halfDuplex,
		periodMs:   periodMs,
	}

	for i := range rxCfgs {
		cfg := rxCfgs[i]
		t.rx = append(t.rx, NewChannel(RoleRx, &cfg))
	}
	for i := range txCfgs {
		cfg := txCfgs[i]
		ch := NewChannel(RoleTx, &cfg)
		t.tx = append(t.tx, ch)
		if cfg.TAType == TargetAddressPhysical && t.physicalTx == nil {
			t.physicalTx = ch
		}
	}
	if t.physicalTx == nil {
		t.physicalTx = t.tx[0]
	}

	return t, nil
}

// halfDuplexBusy reports whether any channel other than except currently
// holds a physical exchange open, per the configured half-duplex policy
// (spec §5). Functional channels never count as holding this lock, and
// functional RX channels do not consult it for SF/CF; Transmit consults it
// for every TX channel, functional ones included.
func (t *CanTp) halfDuplexBusy(except *Channel) bool {
	if !t.halfDuplex {
		return false
	}
	for _, c := range t.rx {
		if c != except && c.Cfg.TAType == TargetAddressPhysical && c.status != stateIdle {
			return true
		}
	}
	for _, c := range t.tx {
		if c != except && c.Cfg.TAType == TargetAddressPhysical && c.status != stateIdle {
			return true
		}
	}
	return false
}

func (t *CanTp) rxChannelByID(id uint32) *Channel {
	for _, c := range t.rx {
		if c.Cfg.RxID == id {
			return c
		}
	}
	return nil
}

func (t *CanTp) txChannelByHandle(h ChannelHandle) *Channel {
	if h < 0 || int(h) >= len(t.tx) {
		return nil
	}
	return t.tx[h]
}

func (t *CanTp) txChannelByRxID(id uint32) *Channel {
	// A TX channel listens for the peer's Flow Control on its own RxID.
	for _, c := range t.tx {
		if c.Cfg.RxID == id {
			return c
		}
	}
	return nil
}

func (t *CanTp) txChannelByTxID(id uint32) *Channel {
	for _, c := range t.tx {
		if c.Cfg.TxID == id {
			return c
		}
	}
	return nil
}

func (t *CanTp) rxChannelByTxID(id uint32) *Channel {
	for _, c := range t.rx {
		if c.Cfg.TxID == id {
			return c
		}
	}
	return nil
}

// Transmit starts a segmented (or single-frame) transmission of size bytes
// on the TX channel identified by handle (spec §6, Cantp_Transmit). The
// payload itself is pulled from Diag lazily via CopyTxData, never buffered
// here.
func (t *CanTp) Transmit(handle ChannelHandle, size uint16) Result {
	c := t.txChannelByHandle(handle)
	if c == nil {
		return ResultError
	}
	if c.status != stateIdle || t.halfDuplexBusy(c) {
		return ResultError
	}
	if size == 0 {
		return ResultError
	}

	if int(size) <= c.pci.MaxDataSize {
		if !t.startTransmitSF(c, size) {
			return ResultError
		}
		return ResultOK
	}
	// A functional-addressed channel is a 1:N broadcast request and never
	// transmits a segmented message (spec §3; Cantp_Transmit in FblCanTp.c
	// guards this with CANTP_IS_PHYSICAL_CHANNEL before segmenting into
	// FF/CF, leaving the channel Idle otherwise).
	if c.Cfg.TAType != TargetAddressPhysical {
		return ResultError
	}
	if size >= ffLengthThreshold {
		return ResultError
	}
	if !t.startTransmitFF(c, size) {
		return ResultError
	}
	return ResultOK
}

// RxIndication delivers one received CAN frame into the scheduler (spec §6,
// Cantp_RxIndication). Per the original dispatch order, a TX channel waiting
// on Flow Control is checked before any RX channel, since an FC can only
// ever be meaningful to a channel already mid-transmission.
func (t *CanTp) RxIndication(id uint32, data []byte, dlc uint8) {
	if txc := t.txChannelByRxID(id); txc != nil && txc.status == stateFC {
		t.receiveFC(txc, data, dlc)
		return
	}
	if rxc := t.rxChannelByID(id); rxc != nil {
		t.dispatchRxFrame(rxc, data, dlc)
		return
	}
	t.log.WithField("id", id).Debug("cantp: frame does not match any configured channel")
}

func (t *CanTp) dispatchRxFrame(c *Channel, data []byte, dlc uint8) {
	if dlc == 0 {
		return
	}
	switch frameType(data[c.pci.PCIPos]) {
	case pciTypeSF:
		t.receiveSF(c, data, dlc)
	case pciTypeFF:
		t.receiveFF(c, data, dlc)
	case pciTypeCF:
		t.receiveCF(c, data, dlc)
	default:
		t.log.WithField("rxId", c.Cfg.RxID).Debug("cantp: unexpected frame type on rx channel")
	}
}

// TxConfirmation reports that the frame most recently queued for id has gone
// out on the wire (spec §6, Cantp_TxConfirmation). Both RX channels
// (answering with a Flow Control frame) and TX channels (sending
// SF/FF/CF) can be the subject of a confirmation.
func (t *CanTp) TxConfirmation(id uint32) {
	if c := t.rxChannelByTxID(id); c != nil && c.status == stateFC {
		t.onTxConfirm(c)
		return
	}
	if c := t.txChannelByTxID(id); c != nil && c.status != stateIdle && c.status != stateFC {
		t.onTxConfirm(c)
		return
	}
}

// PeriodFunction must be called at the configured tick period; it drives
// every timer and retry in the module (spec §6, Cantp_PeriodFunction).
func (t *CanTp) PeriodFunction() {
	for _, c := range t.rx {
		t.tickChannel(c)
	}
	for _, c := range t.tx {
		t.tickChannel(c)
	}
}

func (t *CanTp) tickChannel(c *Channel) {
	if c.txDelay > 0 {
		c.txDelay--
		if c.txDelay == 0 && c.status == stateCF {
			t.sendNextCF(c)
		}
	}

	if c.timer > 0 {
		c.timer--
		if c.timer == 0 {
			if !t.onTimeout(c) {
				t.abort(c)
			}
			return
		}
	}

	t.onPeriod(c)
}

func (t *CanTp) abort(c *Channel) {
	switch c.Role {
	case RoleRx:
		t.diag.RxIndication(c.Cfg.TAType, ResultError)
	case RoleTx:
		t.diag.TxConfirmation(ResultError)
	}
	c.gotoIdle()
}
