package cantp

// Rx-side per-channel state machine (spec §4.4). An RX channel reassembles
// one incoming segmented message at a time and, when it needs to, transmits
// the Flow Control frames that pace the sender.

func (t *CanTp) receiveSF(c *Channel, data []byte, dlc uint8) {
	if c.Cfg.TAType != TargetAddressFunctional && t.halfDuplexBusy(c) {
		return
	}
	if c.bufferOwned {
		// A new SF pre-empts whatever reception is in progress; only the
		// abandoned transfer's own error report is conditional on
		// bufferOwned, not whether the new frame gets accepted
		// (_Cantp_ReceiveSF in FblCanTp.c).
		t.diag.RxIndication(c.Cfg.TAType, ResultError)
	}
	payload, ok := DecodeSF(c.Cfg, data, dlc)
	if !ok {
		return
	}
	c.status = stateSF
	c.sub = subIdle
	c.lastSize = uint8(len(payload))
	copy(c.frame[:], data[:dlc])
	c.initTimer(c.Cfg.TimerB)
}

func (t *CanTp) receiveFF(c *Channel, data []byte, dlc uint8) {
	if c.Cfg.TAType != TargetAddressPhysical {
		// Functional addressing is Single Frame only: an FF is ignored.
		return
	}
	if t.halfDuplexBusy(c) {
		return
	}
	if c.bufferOwned {
		// See receiveSF: a new FF still pre-empts an in-progress reception,
		// it just also reports the abandoned one as an error first.
		t.diag.RxIndication(c.Cfg.TAType, ResultError)
	}
	totalSize, _, escape, ok := DecodeFF(c.Cfg, data, dlc)
	if escape {
		t.log.WithField("rxId", c.Cfg.RxID).Warn("cantp: escape-length first frame rejected")
		return
	}
	if !ok {
		return
	}

	copy(c.frame[:], data[:dlc])
	setMultipleFrameSize(c, totalSize)
	c.sn = 0
	c.wft = c.Cfg.WFT
	c.status = stateFF
	c.sub = subIdle
	c.initTimer(c.Cfg.TimerB)
}

func (t *CanTp) receiveCF(c *Channel, data []byte, dlc uint8) {
	if c.Cfg.TAType != TargetAddressFunctional && t.halfDuplexBusy(c) {
		return
	}
	if c.status != stateCF {
		// Spurious CF with no reception in progress: silently ignored,
		// matching the sender's own timeout-driven recovery.
		return
	}
	sn, payload := DecodeCF(c.Cfg, data, dlc)
	expected := (c.sn + 1) & 0x0F
	if sn != expected {
		t.diag.RxIndication(c.Cfg.TAType, ResultError)
		c.gotoIdle()
		return
	}
	c.sn = expected

	size := len(payload)
	if c.cfCnt == 1 {
		size = int(c.lastSize)
		if size > len(payload) {
			size = len(payload)
		}
	}
	t.diag.CopyRxData(payload[:size])
	c.initTimer(c.Cfg.TimerC)

	if c.cfCnt > 0 {
		c.cfCnt--
	}
	if c.cfCnt != 0 && c.bs != 0 {
		c.bs--
		if c.bs == 0 {
			t.gotoTranFC(c, FlowStatusContinueToSend)
		}
	}
}

// gotoTranFC arms a channel to send a Flow Control frame on the next tick.
// It is used both by an RX channel pacing an incoming block and, via
// PeriodFunction's RECEIVING_FF handling below, to answer a First Frame.
func (t *CanTp) gotoTranFC(c *Channel, fs FlowStatus) {
	c.status = stateFC
	c.sub = subIdle
	c.initTimer(c.Cfg.TimerA)
	c.bs = c.Cfg.BS
	c.flowStatus = fs
}

// sendFC submits a Flow Control frame. c.sub guards re-entry: onPeriodRx
// calls this every tick the channel sits in stateFC, and without the guard
// an asynchronous driver (BusBridge, whose TxConfirmation arrives on a
// separate callback rather than synchronously inside Send) would have the FC
// resent every tick until the bus finally confirms it. A submit failure
// leaves sub at subIdle so the next tick retries.
func (t *CanTp) sendFC(c *Channel) {
	if c.sub != subIdle {
		return
	}
	stWire := c.Cfg.STmin
	frame, length := EncodeFC(c.Cfg, c.flowStatus, c.Cfg.BS, stWire)
	if err := t.drv.Send(c.Cfg.TxID, frame, uint8(length)); err != nil {
		t.log.WithError(err).WithField("txId", c.Cfg.TxID).Warn("cantp: FC submit failed")
		return
	}
	c.sub = subTransmitting
}

func (t *CanTp) onPeriodRx(c *Channel) {
	switch c.status {
	case stateSF:
		result := t.diag.StartOfReception(uint16(c.lastSize))
		if result != ResultOK {
			return
		}
		c.bufferOwned = true
		desc := c.pci
		start := desc.DataPos
		if c.lastSize >= 8 {
			// CAN-FD long SF: the byte after the PCI byte holds the length.
			start++
		}
		payload := c.frame[start : start+int(c.lastSize)]
		copyResult := t.diag.CopyRxData(payload)
		if copyResult == ResultOK {
			t.diag.RxIndication(c.Cfg.TAType, ResultOK)
		} else {
			t.diag.RxIndication(c.Cfg.TAType, ResultError)
		}
		c.gotoIdle()

	case stateFF:
		result := t.diag.StartOfReception(c.totalSize)
		switch result {
		case ResultOK:
			c.bufferOwned = true
			ffData := c.frame[c.pci.FFDataPos : c.pci.FFDataPos+c.pci.MaxFFDataSize]
			if t.diag.CopyRxData(ffData) == ResultOK {
				t.gotoTranFC(c, FlowStatusContinueToSend)
			} else {
				t.diag.RxIndication(c.Cfg.TAType, ResultError)
				c.gotoIdle()
			}
		case ResultOverflow:
			t.gotoTranFC(c, FlowStatusOverflow)
		default:
			// Buffer still busy; try again next tick.
		}

	case stateCF:
		if c.cfCnt == 0 {
			t.diag.RxIndication(c.Cfg.TAType, ResultOK)
			c.gotoIdle()
		}

	case stateFC:
		t.sendFC(c)
	}
}

func (t *CanTp) onTimeoutRx(c *Channel) bool {
	switch c.status {
	case stateSF:
		// Timer B expired waiting on Diag to claim a buffer for an already
		// fully-received SF: no buffer was ever handed out, so there is
		// nothing to report an error for (spec §4.4, RecvSF timeout). Handle
		// it silently rather than routing through abort()'s Diag call.
		c.gotoIdle()
		return true

	case stateFF:
		if c.wft != 0 {
			c.wft--
			t.gotoTranFC(c, FlowStatusWait)
			return true
		}
		return false

	case stateCF:
		return false

	case stateFC:
		// Timer A expired waiting for our own Flow Control to go out. If we
		// were sending WAIT, the peer simply gets no answer and times out on
		// its own side silently; any other pending flow status is a real
		// failure to report (spec §4.4, TranFC timeout).
		if c.flowStatus != FlowStatusWait {
			t.diag.RxIndication(c.Cfg.TAType, ResultError)
		}
		c.gotoIdle()
		return true
	}
	return false
}
