package cantp

import "testing"

func TestEncodeDecodeSFRoundTrip(t *testing.T) {
	cfg := &ChannelConfig{Type: AddressingStandard}
	data := []byte{1, 2, 3, 4}
	frame, length := EncodeSF(cfg, data)

	got, ok := DecodeSF(cfg, frame[:], uint8(length))
	if !ok {
		t.Fatal("DecodeSF reported failure on a frame we just encoded")
	}
	if string(got) != string(data) {
		t.Fatalf("got %v, want %v", got, data)
	}
}

func TestEncodeDecodeSFRoundTripCANFD(t *testing.T) {
	cfg := &ChannelConfig{Type: AddressingStandard, FD: true}
	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i)
	}
	frame, length := EncodeSF(cfg, data)

	got, ok := DecodeSF(cfg, frame[:], uint8(length))
	if !ok {
		t.Fatal("DecodeSF reported failure on a CAN-FD frame we just encoded")
	}
	if string(got) != string(data) {
		t.Fatalf("got %v, want %v", got, data)
	}
}

func TestDecodeSFRejectsLongFrameWithoutEscapeNibble(t *testing.T) {
	cfg := &ChannelConfig{Type: AddressingStandard, FD: true}
	data := make([]byte, 10)
	frame, length := EncodeSF(cfg, data)
	frame[0] = pciTypeSF | 0x01 // corrupt the escape nibble
	if _, ok := DecodeSF(cfg, frame[:], uint8(length)); ok {
		t.Fatal("expected a long SF with a non-zero PCI nibble to be rejected")
	}
}

func TestEncodeDecodeFFRoundTrip(t *testing.T) {
	cfg := &ChannelConfig{Type: AddressingStandard}
	data := make([]byte, 6)
	for i := range data {
		data[i] = byte(i)
	}
	frame, length := EncodeFF(cfg, 200, data)

	total, ff, escape, ok := DecodeFF(cfg, frame[:], uint8(length))
	if escape || !ok {
		t.Fatalf("DecodeFF failed: escape=%v ok=%v", escape, ok)
	}
	if total != 200 {
		t.Fatalf("got total size %d, want 200", total)
	}
	if string(ff) != string(data) {
		t.Fatalf("got %v, want %v", ff, data)
	}
}

func TestDecodeFFEscapeLengthRejected(t *testing.T) {
	cfg := &ChannelConfig{Type: AddressingStandard}
	var frame [8]byte
	frame[0] = pciTypeFF // length nibble 0, second byte 0 -> escape-length marker
	_, _, escape, ok := DecodeFF(cfg, frame[:], 8)
	if !escape || ok {
		t.Fatalf("expected an escape-length first frame to be flagged and rejected, got escape=%v ok=%v", escape, ok)
	}
}

func TestEncodeDecodeCFRoundTrip(t *testing.T) {
	cfg := &ChannelConfig{Type: AddressingExtended, TA: 0x42}
	data := []byte{9, 9, 9}
	frame, length := EncodeCF(cfg, 3, data)

	sn, got := DecodeCF(cfg, frame[:], uint8(length))
	if sn != 3 {
		t.Fatalf("got sn %d, want 3", sn)
	}
	if string(got) != string(data) {
		t.Fatalf("got %v, want %v", got, data)
	}
	if frame[0] != 0x42 {
		t.Fatalf("expected TA byte 0x42 in extended addressing, got 0x%02X", frame[0])
	}
}

func TestEncodeDecodeFCRoundTrip(t *testing.T) {
	cfg := &ChannelConfig{Type: AddressingStandard}
	frame, length := EncodeFC(cfg, FlowStatusContinueToSend, 8, 0x0A)

	fs, bs, st, ok := DecodeFC(cfg, frame[:], uint8(length))
	if !ok {
		t.Fatal("DecodeFC failed on a frame we just encoded")
	}
	if fs != FlowStatusContinueToSend || bs != 8 || st != 0x0A {
		t.Fatalf("got fs=%v bs=%d st=0x%02X", fs, bs, st)
	}
}
