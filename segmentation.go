package cantp

// setMultipleFrameSize computes how many Consecutive Frames a segmented
// transfer needs and how many payload bytes the final one carries (spec
// §4.5). totalSize is the full message size, First Frame chunk included.
// cfCnt counts CFs only, not the First Frame. lastSize uses a "+1"
// convention because the First Frame carries one byte less than a CF: with
// MaxDataSize 7, 20 bytes give cfCnt=2 and lastSize=7 (6+7+7), and 21 bytes
// give cfCnt=3 and lastSize=1 (6+7+7+1). lastSize therefore ranges over
// 1..MaxDataSize.
func setMultipleFrameSize(c *Channel, totalSize uint16) {
	maxData := uint16(c.pci.MaxDataSize)
	c.totalSize = totalSize
	c.cfCnt = totalSize / maxData
	c.lastSize = uint8(totalSize%maxData) + 1
}
