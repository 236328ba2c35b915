package cantp

// Diag is the diagnostic session layer this module sits underneath (spec §6,
// "operations consumed downward from Diag"). CanTp never buffers message
// payload itself; Diag owns every byte above the wire frame.
type Diag interface {
	// StartOfReception asks Diag to allocate a buffer for an incoming
	// message of the given total size. ResultOverflow means the message is
	// too large for Diag to accept; any other non-OK result means try again
	// next period (the buffer is busy).
	StartOfReception(size uint16) Result

	// CopyRxData hands Diag the next chunk of received payload.
	CopyRxData(frame []byte) Result

	// CopyTxData asks Diag for the next chunk of payload to send, writing
	// up to len(dst) bytes into dst and returning how many it wrote.
	CopyTxData(dst []byte) (int, Result)

	// RxIndication reports that a reception finished (successfully or not).
	RxIndication(taType TargetAddressType, result Result)

	// TxConfirmation reports that a transmission finished (successfully or
	// not, including ResultOverflow when the peer rejected the transfer).
	TxConfirmation(result Result)
}
