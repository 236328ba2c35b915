package cantp

// Tx-side per-channel state machine (spec §4.4). A TX channel segments one
// outgoing message at a time, pulls its payload from Diag lazily, and waits
// on the peer's Flow Control to pace Consecutive Frames.

// startTransmitSF sends a message that fits in a single frame. It reports
// whether the send actually went out; on failure the channel is left Idle so
// the caller (Transmit) can be told to retry rather than silently losing the
// frame (spec §5/§7: a driver submit failure must not be mistaken for a
// successful transmission).
func (t *CanTp) startTransmitSF(c *Channel, size uint16) bool {
	buf := make([]byte, size)
	n, _ := t.diag.CopyTxData(buf)
	frame, length := EncodeSF(c.Cfg, buf[:n])
	if err := t.drv.Send(c.Cfg.TxID, frame, uint8(length)); err != nil {
		t.log.WithError(err).WithField("txId", c.Cfg.TxID).Warn("cantp: SF submit failed")
		return false
	}
	c.status = stateSF
	c.sub = subIdle
	c.initTimer(c.Cfg.TimerA)
	return true
}

func (t *CanTp) startTransmitFF(c *Channel, size uint16) bool {
	setMultipleFrameSize(c, size)
	buf := make([]byte, c.pci.MaxFFDataSize)
	n, _ := t.diag.CopyTxData(buf)
	frame, length := EncodeFF(c.Cfg, size, buf[:n])
	if err := t.drv.Send(c.Cfg.TxID, frame, uint8(length)); err != nil {
		t.log.WithError(err).WithField("txId", c.Cfg.TxID).Warn("cantp: FF submit failed")
		return false
	}
	c.status = stateFF
	c.sub = subIdle
	c.sn = 0
	c.initTimer(c.Cfg.TimerA)
	return true
}

// sendNextCF transmits the next Consecutive Frame once the STmin pacing
// delay (c.txDelay) has elapsed. c.sub guards re-entry: tickChannel only
// calls this once txDelay reaches zero, and onTxConfirm resets sub to
// subIdle once the previous CF is actually confirmed, so a second call while
// still subTransmitting would mean a confirmation hasn't arrived yet. On a
// driver submit failure, cfCnt is left untouched and sub stays subIdle so the
// next tick retries the same frame.
func (t *CanTp) sendNextCF(c *Channel) {
	if c.sub != subIdle {
		return
	}
	size := c.pci.MaxDataSize
	if c.cfCnt == 1 {
		size = int(c.lastSize)
	}
	buf := make([]byte, size)
	n, _ := t.diag.CopyTxData(buf)
	frame, length := EncodeCF(c.Cfg, c.sn+1, buf[:n])
	if err := t.drv.Send(c.Cfg.TxID, frame, uint8(length)); err != nil {
		t.log.WithError(err).WithField("txId", c.Cfg.TxID).Warn("cantp: CF submit failed")
		return
	}
	c.sub = subTransmitting
	c.cfCnt--
}

// receiveFC handles a Flow Control frame arriving for a TX channel waiting
// on one (spec §4.4).
func (t *CanTp) receiveFC(c *Channel, data []byte, dlc uint8) {
	fs, bs, st, ok := DecodeFC(c.Cfg, data, dlc)
	if !ok {
		t.diag.TxConfirmation(ResultError)
		c.gotoIdle()
		return
	}
	switch fs {
	case FlowStatusContinueToSend:
		c.bs = bs
		c.stTicks = STMinToTicks(st, t.periodMs)
		c.sub = subIdle
		c.status = stateCF
		c.txDelay = 1
		c.initTimer(c.Cfg.TimerC)
	case FlowStatusWait:
		c.initTimer(c.Cfg.TimerB)
	case FlowStatusOverflow:
		t.diag.TxConfirmation(ResultOverflow)
		c.gotoIdle()
	default:
		t.diag.TxConfirmation(ResultError)
		c.gotoIdle()
	}
}

// onTxConfirm runs once the CAN driver confirms a frame has actually gone
// out on the wire. Slots 1-3 (SF/FF/CF) only ever apply to a TX-role
// channel; slot 4 (FC) only ever applies to an RX-role channel, since that
// is the only frame type an RX channel ever transmits.
func (t *CanTp) onTxConfirm(c *Channel) {
	switch c.status {
	case stateSF:
		t.diag.TxConfirmation(ResultOK)
		c.gotoIdle()

	case stateFF:
		// c.sn tracks the last sn actually sent; the FF itself carries none,
		// so it starts at 0 and the first CF (c.sn+1 in sendNextCF) is 1,
		// matching the receiver's own c.sn=0 starting point (dispatch_rx.go).
		c.sn = 0
		c.status = stateFC
		c.sub = subIdle
		c.initTimer(c.Cfg.TimerB)

	case stateCF:
		c.sub = subIdle
		c.sn = (c.sn + 1) & 0x0F
		if c.cfCnt == 0 {
			t.diag.TxConfirmation(ResultOK)
			c.gotoIdle()
			return
		}
		if c.bs != 0 {
			c.bs--
			if c.bs == 0 {
				c.status = stateFC
				c.sub = subIdle
				c.initTimer(c.Cfg.TimerB)
				return
			}
		}
		c.initTimer(c.Cfg.TimerC)
		c.txDelay = c.stTicks
		if c.txDelay == 0 {
			c.txDelay = 1
		}

	case stateFC:
		switch c.flowStatus {
		case FlowStatusContinueToSend:
			c.status = stateCF
			c.sub = subIdle
			c.initTimer(c.Cfg.TimerC)
		case FlowStatusWait:
			c.status = stateFF
			c.sub = subIdle
			c.initTimer(c.Cfg.TimerB)
		default:
			c.gotoIdle()
		}
	}
}

func (t *CanTp) onPeriodTx(c *Channel) {
	// TX-side periodic work is pacing-only; sendNextCF is driven directly
	// from tickChannel's txDelay countdown, and waiting for Flow Control
	// or a confirmation is purely timer-driven.
	_ = c
}

func (t *CanTp) onTimeoutTx(c *Channel) bool {
	return false
}
