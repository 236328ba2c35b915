package cantp

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/fbl/cantp/pkg/can"
)

// BusBridge adapts a pkg/can.Bus (the CAN controller collaborator, spec §6)
// into the CanDriver interface CanTp sends through, and feeds every frame it
// receives into a CanTp's RxIndication/TxConfirmation entry points. This
// plays the role bus_manager.go played for the CANopen stack: CAN-ID
// filtering (masked with unix.CAN_SFF_MASK, same as the teacher's
// BusManager.Handle) ahead of protocol dispatch.
type BusBridge struct {
	bus  can.Bus
	tp   *CanTp
	txID map[uint32]bool
}

// NewBusBridge wires bus to a CanTp that is attached later via SetScheduler
// (CanTp itself needs a CanDriver — this bridge — at construction time, so
// the two can't be built in one step). txIDs lists every CAN ID this node
// itself transmits on (its RX channels' TxID and TX channels' TxID), used to
// route TxConfirmation vs RxIndication from the single Handle callback
// brutella/can and the virtual bus both deliver every frame through.
func NewBusBridge(bus can.Bus, txIDs []uint32) *BusBridge {
	ids := make(map[uint32]bool, len(txIDs))
	for _, id := range txIDs {
		ids[id] = true
	}
	return &BusBridge{bus: bus, txID: ids}
}

// SetScheduler attaches the CanTp instance this bridge feeds. Must be called
// before the bus starts delivering frames.
func (b *BusBridge) SetScheduler(tp *CanTp) {
	b.tp = tp
}

// Send implements CanDriver. pkg/can's Bus/Frame abstraction (brutella/can
// underneath the socketcan backend, a TCP broker link underneath the virtual
// one) only ever carries
// a classical 8-byte CAN payload; neither backend in this module's dependency
// pack speaks CAN-FD. A CAN-FD channel's longer frames are therefore rejected
// here rather than silently truncated onto the wire.
func (b *BusBridge) Send(id uint32, data [maxFrameSize]byte, length uint8) error {
	if length > 8 {
		return fmt.Errorf("cantp: frame of %d bytes exceeds classical CAN payload; no CAN-FD bus backend is wired", length)
	}
	var frameData [8]byte
	copy(frameData[:], data[:8])
	return b.bus.Send(can.Frame{ID: id, DLC: length, Data: frameData})
}

// Handle implements can.FrameListener. Frames carrying one of this node's own
// TX identifiers are echoes of our own transmissions (loopback or bus
// confirmation) and are routed to TxConfirmation; everything else is routed
// to RxIndication.
func (b *BusBridge) Handle(frame can.Frame) {
	id := frame.ID & unix.CAN_SFF_MASK
	if b.txID[id] {
		b.tp.TxConfirmation(id)
		return
	}
	b.tp.RxIndication(id, frame.Data[:], frame.DLC)
}
