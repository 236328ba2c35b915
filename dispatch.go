package cantp

// onPeriod and onTimeout fan out to the RX-side or TX-side handlers
// (dispatch_rx.go / dispatch_tx.go) based on channel role. This is the
// switch-dispatch redesign spec §9 Design Notes calls for, in place of the
// original's parallel per-status function-pointer arrays.
func (t *CanTp) onPeriod(c *Channel) {
	switch c.Role {
	case RoleRx:
		t.onPeriodRx(c)
	case RoleTx:
		t.onPeriodTx(c)
	}
}

func (t *CanTp) onTimeout(c *Channel) bool {
	switch c.Role {
	case RoleRx:
		return t.onTimeoutRx(c)
	case RoleTx:
		return t.onTimeoutTx(c)
	}
	return false
}
