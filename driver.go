package cantp

// CanDriver is the CAN controller this module sits above (spec §6,
// "operations consumed downward from the CAN driver"): FblCanSendData in the
// original implementation. data is sized to maxFrameSize so a single
// interface serves both classical CAN and CAN-FD channels; length reports
// how many of those bytes are actually significant.
type CanDriver interface {
	Send(id uint32, data [maxFrameSize]byte, length uint8) error
}
