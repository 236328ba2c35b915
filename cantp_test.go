package cantp

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireFrame is one frame in flight between the two nodes of a simulated bus.
type wireFrame struct {
	id     uint32
	data   [maxFrameSize]byte
	length uint8
}

// pairBus is a minimal two-node CAN bus double: each node's CanDriver queues
// its sends here instead of touching real hardware, and the test drives
// delivery explicitly between PeriodFunction ticks. This plays the role
// pkg/can/virtual plays for the demo CLI, shrunk to exactly what these tests
// need: synchronous, deterministic frame delivery with no goroutines.
type pairBus struct {
	aToB []wireFrame
	bToA []wireFrame
}

type nodeDriver struct {
	bus  *pairBus
	self *int // 0 = node A, 1 = node B
}

func (d *nodeDriver) Send(id uint32, data [maxFrameSize]byte, length uint8) error {
	f := wireFrame{id: id, data: data, length: length}
	if *d.self == 0 {
		d.bus.aToB = append(d.bus.aToB, f)
	} else {
		d.bus.bToA = append(d.bus.bToA, f)
	}
	return nil
}

// deliver flushes every frame queued since the last call, feeding each one to
// the receiving node's RxIndication and to the sending node's own
// TxConfirmation (a real CAN controller confirms its own transmission
// independently of whether anyone else is listening).
func deliver(bus *pairBus, a, b *CanTp) {
	for _, f := range bus.aToB {
		a.TxConfirmation(f.id)
		b.RxIndication(f.id, f.data[:f.length], f.length)
	}
	bus.aToB = nil
	for _, f := range bus.bToA {
		b.TxConfirmation(f.id)
		a.RxIndication(f.id, f.data[:f.length], f.length)
	}
	bus.bToA = nil
}

const (
	reqID  = 0x600 // tester -> ECU, physical addressing
	respID = 0x608 // ECU -> tester, and Flow Control both ways
)

// newPair builds a tester node (one TX channel) and an ECU node (one RX
// channel) wired to each other's identifiers, the classic UDS physical
// request/response pair. periodMs and the timer budgets are kept small so
// the tests only need a handful of PeriodFunction ticks.
func newPair(t *testing.T, bs, wft uint8) (tester *CanTp, testerDiag *BufferDiag, ecu *CanTp, ecuDiag *BufferDiag, bus *pairBus) {
	t.Helper()
	bus = &pairBus{}
	nodeA, nodeB := 0, 1

	txCfg := ChannelConfig{
		Type: AddressingStandard, TAType: TargetAddressPhysical,
		RxID: respID, TxID: reqID,
		TimerA: 50, TimerB: 50, TimerC: 50,
	}
	rxCfg := ChannelConfig{
		Type: AddressingStandard, TAType: TargetAddressPhysical,
		RxID: reqID, TxID: respID,
		TimerA: 50, TimerB: 50, TimerC: 50,
		BS: bs, STmin: 0, WFT: wft,
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	testerDiag = NewBufferDiag(4096, nil)
	ecuDiag = NewBufferDiag(4096, nil)

	// Every CanTp needs at least one TX channel (NewCanTp rejects an empty
	// TX table); the ECU side of these tests never starts its own segmented
	// transmission, so its TX channel is configured but never exercised.
	ecuSpareTx := ChannelConfig{Type: AddressingStandard, TAType: TargetAddressPhysical, RxID: 0x6F0, TxID: 0x6F1, TimerA: 50, TimerB: 50, TimerC: 50}

	var err error
	tester, err = NewCanTp(testerDiag, &nodeDriver{bus: bus, self: &nodeA}, nil, []ChannelConfig{txCfg}, 2, true, log)
	require.NoError(t, err)
	ecu, err = NewCanTp(ecuDiag, &nodeDriver{bus: bus, self: &nodeB}, []ChannelConfig{rxCfg}, []ChannelConfig{ecuSpareTx}, 2, true, log)
	require.NoError(t, err)
	return tester, testerDiag, ecu, ecuDiag, bus
}

func TestSingleFrameTransfer(t *testing.T) {
	tester, testerDiag, ecu, ecuDiag, bus := newPair(t, 0, 0)

	payload := []byte{0x10, 0x20, 0x30, 0x40}
	testerDiag.SetTxData(payload)

	var gotResult Result
	var gotData []byte
	ecuDiag.rxDone = func(data []byte, result Result) { gotData = append([]byte(nil), data...); gotResult = result }

	assert.Equal(t, ResultOK, tester.Transmit(0, uint16(len(payload))))
	deliver(bus, tester, ecu)
	ecu.PeriodFunction()

	assert.Equal(t, ResultOK, gotResult)
	assert.Equal(t, payload, gotData)
	assert.Equal(t, ResultOK, testerDiag.LastTxResult())
}

// TestMultiFrameTransferUnlimitedBlock exercises a First Frame + two
// Consecutive Frames exchange with BS=0 (no block limit: the ECU's Flow
// Control authorizes the whole message in one go), matching spec.md's
// scenario 2.
func TestMultiFrameTransferUnlimitedBlock(t *testing.T) {
	tester, testerDiag, ecu, ecuDiag, bus := newPair(t, 0, 0)

	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	testerDiag.SetTxData(payload)

	var gotData []byte
	var gotResult Result
	ecuDiag.rxDone = func(data []byte, result Result) { gotData = append([]byte(nil), data...); gotResult = result }

	assert.Equal(t, ResultOK, tester.Transmit(0, uint16(len(payload))))

	// FF reaches the ECU; ECU allocates a buffer and arms its Flow Control.
	deliver(bus, tester, ecu)
	ecu.PeriodFunction() // StartOfReception + CopyRxData(FF data), arm TranFC
	ecu.PeriodFunction() // send FC(CTS)
	deliver(bus, tester, ecu)

	// Tester now has Flow Control and paces out two CFs, one per tick.
	for i := 0; i < 4 && len(gotData) < len(payload); i++ {
		tester.PeriodFunction()
		deliver(bus, tester, ecu)
		ecu.PeriodFunction()
	}

	assert.Equal(t, ResultOK, gotResult)
	assert.Equal(t, payload, gotData)
	assert.Equal(t, ResultOK, testerDiag.LastTxResult())
}

// TestMultiFrameTransferBlockSize exercises a block size smaller than the
// total CF count, forcing the ECU to issue a second Flow Control mid
// transfer (spec.md scenario 3).
func TestMultiFrameTransferBlockSize(t *testing.T) {
	tester, testerDiag, ecu, ecuDiag, bus := newPair(t, 1, 0)

	payload := make([]byte, 20) // cfCnt=2 CFs needed, BS=1 means one FC per CF
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	testerDiag.SetTxData(payload)

	var gotData []byte
	var gotResult Result
	ecuDiag.rxDone = func(data []byte, result Result) { gotData = append([]byte(nil), data...); gotResult = result }

	require.Equal(t, ResultOK, tester.Transmit(0, uint16(len(payload))))

	for i := 0; i < 20 && len(gotData) < len(payload); i++ {
		deliver(bus, tester, ecu)
		tester.PeriodFunction()
		ecu.PeriodFunction()
	}
	deliver(bus, tester, ecu)
	ecu.PeriodFunction()

	assert.Equal(t, ResultOK, gotResult)
	assert.Equal(t, payload, gotData)
	assert.Equal(t, ResultOK, testerDiag.LastTxResult())
}

// TestConsecutiveFrameOutOfOrderAborts exercises spec.md scenario 4: a
// skipped sequence number must abort the reception with an error rather than
// silently accepting misordered data.
func TestConsecutiveFrameOutOfOrderAborts(t *testing.T) {
	tester, testerDiag, ecu, ecuDiag, bus := newPair(t, 0, 0)
	_ = tester
	_ = testerDiag

	rxCfg := ecu.rx[0]
	rxCfg.status = stateCF
	rxCfg.cfCnt = 2
	rxCfg.lastSize = 7
	rxCfg.sn = 0

	var gotResult Result
	ecuDiag.rxDone = func(_ []byte, result Result) { gotResult = result }

	frame, length := EncodeCF(rxCfg.Cfg, 2, []byte{1, 2, 3}) // sn should have been 1
	ecu.RxIndication(rxCfg.Cfg.RxID, frame[:length], length)

	assert.Equal(t, ResultError, gotResult)
	assert.Equal(t, stateIdle, rxCfg.status)
	_ = bus
}

// TestFunctionalAddressingBypassesHalfDuplexLock exercises spec.md scenario
// 5 / spec §5: a functionally-addressed request must be accepted even while
// a physical exchange is already open on another channel.
func TestFunctionalAddressingBypassesHalfDuplexLock(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	physRx := ChannelConfig{Type: AddressingStandard, TAType: TargetAddressPhysical, RxID: 0x700, TxID: 0x708, TimerA: 50, TimerB: 50, TimerC: 50}
	funcRx := ChannelConfig{Type: AddressingStandard, TAType: TargetAddressFunctional, RxID: 0x7DF, TxID: 0x708, TimerA: 50, TimerB: 50, TimerC: 50}

	var funcResult *Result
	funcDiag := NewBufferDiag(64, nil)
	diag := &multiDiag{BufferDiag: funcDiag, onRx: func(taType TargetAddressType, result Result) {
		if taType == TargetAddressFunctional {
			r := result
			funcResult = &r
		}
	}}

	spareTx := ChannelConfig{Type: AddressingStandard, TAType: TargetAddressPhysical, RxID: 0x6F0, TxID: 0x6F1, TimerA: 50, TimerB: 50, TimerC: 50}
	var self int
	ecu, err := NewCanTp(diag, &nodeDriver{bus: &pairBus{}, self: &self}, []ChannelConfig{physRx, funcRx}, []ChannelConfig{spareTx}, 2, true, log)
	require.NoError(t, err)

	// Open a physical exchange first (FF, no confirmation yet needed).
	ffFrame, ffLen := EncodeFF(&physRx, 20, make([]byte, 6))
	ecu.RxIndication(physRx.RxID, ffFrame[:ffLen], ffLen)
	require.Equal(t, stateFF, ecu.rx[0].status)

	// A functionally-addressed SF must still be accepted.
	sfFrame, sfLen := EncodeSF(&funcRx, []byte{0xAA})
	ecu.RxIndication(funcRx.RxID, sfFrame[:sfLen], sfLen)
	ecu.PeriodFunction()

	require.NotNil(t, funcResult)
	assert.Equal(t, ResultOK, *funcResult)
}

// multiDiag wraps BufferDiag so a test can observe which channel's
// RxIndication actually fired, since BufferDiag itself only tracks the last
// reception.
type multiDiag struct {
	*BufferDiag
	onRx func(TargetAddressType, Result)
}

func (d *multiDiag) RxIndication(taType TargetAddressType, result Result) {
	d.BufferDiag.RxIndication(taType, result)
	if d.onRx != nil {
		d.onRx(taType, result)
	}
}

func TestEscapeLengthFirstFrameNeverReachesTheStateMachine(t *testing.T) {
	tester, testerDiag, ecu, _, bus := newPair(t, 0, 0)
	_ = tester
	_ = testerDiag

	var frame [8]byte
	frame[0] = pciTypeFF
	ecu.RxIndication(ecu.rx[0].Cfg.RxID, frame[:], 8)

	assert.Equal(t, stateIdle, ecu.rx[0].status, "an escape-length FF must never start a reception")
	_ = bus
}

func TestSequenceNumberWrapsPastFifteen(t *testing.T) {
	tester, testerDiag, ecu, ecuDiag, bus := newPair(t, 0, 0)

	payload := make([]byte, 7*20) // far more than 16 CFs, forcing sn to wrap past 0xF
	for i := range payload {
		payload[i] = byte(i)
	}
	testerDiag.SetTxData(payload)

	var gotData []byte
	var gotResult Result
	ecuDiag.rxDone = func(data []byte, result Result) { gotData = append([]byte(nil), data...); gotResult = result }

	require.Equal(t, ResultOK, tester.Transmit(0, uint16(len(payload))))

	for i := 0; i < 400 && len(gotData) < len(payload); i++ {
		deliver(bus, tester, ecu)
		tester.PeriodFunction()
		ecu.PeriodFunction()
	}
	deliver(bus, tester, ecu)
	ecu.PeriodFunction()

	assert.Equal(t, ResultOK, gotResult)
	assert.Equal(t, payload, gotData)
}
