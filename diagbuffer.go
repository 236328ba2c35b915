package cantp

import "sync"

// BufferDiag is a minimal, in-memory Diag implementation backed by a plain
// byte slice instead of a real diagnostic session layer. It exists for the
// demo CLI and for round-trip tests: something has to sit below CanTp for
// either to run at all, and the protocol core itself intentionally owns no
// buffer (spec §5). Structurally this plays the role the teacher's circular
// Fifo (fifo.go) played for the SDO client, simplified down to the
// single-message-at-a-time shape CanTp actually needs and with the CRC
// bookkeeping dropped (CAN-TP carries no CRC).
type BufferDiag struct {
	mu sync.Mutex

	maxSize uint16
	rx      []byte
	rxPos   int
	rxDone  func([]byte, Result)

	tx    []byte
	txPos int

	lastTx Result
}

// NewBufferDiag builds a BufferDiag that refuses receptions larger than
// maxSize (ResultOverflow) and calls onReceive once a reception finishes,
// successfully or not.
func NewBufferDiag(maxSize uint16, onReceive func(data []byte, result Result)) *BufferDiag {
	return &BufferDiag{maxSize: maxSize, rxDone: onReceive}
}

func (d *BufferDiag) StartOfReception(size uint16) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if size > d.maxSize {
		return ResultOverflow
	}
	d.rx = make([]byte, size)
	d.rxPos = 0
	return ResultOK
}

func (d *BufferDiag) CopyRxData(frame []byte) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(d.rx[d.rxPos:], frame)
	d.rxPos += n
	return ResultOK
}

func (d *BufferDiag) CopyTxData(dst []byte) (int, Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(dst, d.tx[d.txPos:])
	d.txPos += n
	return n, ResultOK
}

func (d *BufferDiag) RxIndication(taType TargetAddressType, result Result) {
	d.mu.Lock()
	data := d.rx[:d.rxPos]
	cb := d.rxDone
	d.mu.Unlock()
	if cb != nil {
		cb(data, result)
	}
}

func (d *BufferDiag) TxConfirmation(result Result) {
	d.mu.Lock()
	d.lastTx = result
	d.mu.Unlock()
}

// SetTxData stages the payload the next Transmit call will send.
func (d *BufferDiag) SetTxData(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tx = data
	d.txPos = 0
}

// LastTxResult reports the outcome of the most recent transmission.
func (d *BufferDiag) LastTxResult() Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTx
}
