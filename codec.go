package cantp

// Frame codec: translates between wire-format CAN payloads and the SF/FF/CF/FC
// values the channel state machines operate on (spec §4.1). All functions
// here are pure — they neither read nor mutate scheduler or timer state.

func frameType(pci uint8) uint8 {
	return pci & 0xF0
}

func lowNibble(v uint8) uint8 {
	return v & 0x0F
}

// writeTA prefixes the TA byte for non-standard addressing. Standard
// addressing carries no TA byte at all (spec §4.1).
func writeTA(desc *PCIDescriptor, cfg *ChannelConfig, frame []byte) {
	if cfg.Type != AddressingStandard {
		frame[0] = cfg.TA
	}
}

// EncodeSF writes a Single Frame carrying data (len(data) <= pci.MaxDataSize)
// into frame and returns the frame length to transmit. Per FblCanTp.c's
// _Cantp_ReceiveSF, a payload of 8 bytes or more (only possible on a CAN-FD
// channel) cannot fit in the PCI byte's low nibble: the nibble is written as
// 0 (the escape marker) and the true length is written to the following
// byte instead, shifting the data start by one.
func EncodeSF(cfg *ChannelConfig, data []byte) (frame [maxFrameSize]byte, length int) {
	desc := pciFor(cfg)
	writeTA(desc, cfg, frame[:])
	if len(data) >= 8 {
		frame[desc.PCIPos] = pciTypeSF
		frame[desc.PCIPos+1] = uint8(len(data))
		copy(frame[desc.DataPos+1:], data)
		return frame, desc.DataPos + 1 + len(data)
	}
	frame[desc.PCIPos] = pciTypeSF | lowNibble(uint8(len(data)))
	copy(frame[desc.DataPos:], data)
	return frame, desc.DataPos + len(data)
}

// DecodeSF reads a Single Frame. ok is false if the declared size does not
// fit within the received DLC. Mirrors EncodeSF's CAN-FD long-SF rule: a
// received frame longer than 8 bytes must carry its length in the byte after
// the PCI byte, with the PCI nibble itself required to be the 0 escape
// marker (spec §4.1, FblCanTp.c's `ENABLE_CANFD` branch of _Cantp_ReceiveSF).
func DecodeSF(cfg *ChannelConfig, frame []byte, dlc uint8) (data []byte, ok bool) {
	desc := pciFor(cfg)
	if dlc > 8 {
		if lowNibble(frame[desc.PCIPos]) != 0 {
			return nil, false
		}
		size := int(frame[desc.PCIPos+1])
		if size < 8 || desc.DataPos+1+size > int(dlc) {
			return nil, false
		}
		return frame[desc.DataPos+1 : desc.DataPos+1+size], true
	}
	size := lowNibble(frame[desc.PCIPos])
	if size == 0 || int(desc.DataPos)+int(size) > int(dlc) {
		return nil, false
	}
	return frame[desc.DataPos : desc.DataPos+int(size)], true
}

// EncodeFF writes a First Frame declaring totalSize and carrying the leading
// pci.MaxFFDataSize bytes of data. totalSize must be below the escape-length
// threshold (spec §4 Non-goals: escape-length FF is rejected, not encoded).
func EncodeFF(cfg *ChannelConfig, totalSize uint16, data []byte) (frame [maxFrameSize]byte, length int) {
	desc := pciFor(cfg)
	writeTA(desc, cfg, frame[:])
	frame[desc.PCIPos] = pciTypeFF | uint8((totalSize>>8)&0x0F)
	frame[desc.PCIPos+1] = uint8(totalSize & 0xFF)
	copy(frame[desc.FFDataPos:], data)
	return frame, desc.FFDataPos + len(data)
}

// DecodeFF reads a First Frame. escapeLength reports an escape-length FF
// (declared length field == 0x000), which this module rejects rather than
// decodes (spec §4 Non-goals). ok is false if the frame is too short for a
// valid FF header or declares a total size that does not actually require
// segmentation.
func DecodeFF(cfg *ChannelConfig, frame []byte, dlc uint8) (totalSize uint16, data []byte, escapeLength bool, ok bool) {
	desc := pciFor(cfg)
	if int(dlc) < desc.FFDataPos {
		return 0, nil, false, false
	}
	totalSize = uint16(lowNibble(frame[desc.PCIPos]))<<8 | uint16(frame[desc.PCIPos+1])
	if totalSize == 0 {
		return 0, nil, true, false
	}
	if int(totalSize) <= desc.MaxDataSize {
		// Too small to need an FF at all; reject rather than silently accept.
		return totalSize, nil, false, false
	}
	return totalSize, frame[desc.FFDataPos:dlc], false, true
}

// EncodeCF writes a Consecutive Frame with sequence number sn (low nibble
// only — spec §4.5 sequence numbers wrap 1..15,0..).
func EncodeCF(cfg *ChannelConfig, sn uint8, data []byte) (frame [maxFrameSize]byte, length int) {
	desc := pciFor(cfg)
	writeTA(desc, cfg, frame[:])
	frame[desc.PCIPos] = pciTypeCF | lowNibble(sn)
	copy(frame[desc.DataPos:], data)
	return frame, desc.DataPos + len(data)
}

// DecodeCF reads a Consecutive Frame's sequence number and payload.
func DecodeCF(cfg *ChannelConfig, frame []byte, dlc uint8) (sn uint8, data []byte) {
	desc := pciFor(cfg)
	sn = lowNibble(frame[desc.PCIPos])
	end := int(dlc)
	if end > len(frame) {
		end = len(frame)
	}
	return sn, frame[desc.DataPos:end]
}

// EncodeFC writes a Flow Control frame.
func EncodeFC(cfg *ChannelConfig, fs FlowStatus, bs uint8, st uint8) (frame [maxFrameSize]byte, length int) {
	desc := pciFor(cfg)
	writeTA(desc, cfg, frame[:])
	frame[desc.PCIPos] = pciTypeFC | lowNibble(uint8(fs))
	frame[desc.FCBSPos] = bs
	frame[desc.FCSTPos] = st
	return frame, desc.MaxFCDataSize
}

// DecodeFC reads a Flow Control frame. ok is false if the frame is too short
// to hold the BS and STmin bytes. The flow status is returned as received,
// unrecognized values included; the caller (receiveFC) treats any value
// other than CTS, WAIT and OVERFLOW as an error.
func DecodeFC(cfg *ChannelConfig, frame []byte, dlc uint8) (fs FlowStatus, bs uint8, st uint8, ok bool) {
	desc := pciFor(cfg)
	if int(dlc) < desc.FCSTPos+1 {
		return 0, 0, 0, false
	}
	fs = FlowStatus(lowNibble(frame[desc.PCIPos]))
	bs = frame[desc.FCBSPos]
	st = frame[desc.FCSTPos]
	return fs, bs, st, true
}
