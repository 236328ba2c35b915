// Package cantp implements the ISO 15765-2 CAN Transport Protocol layer used
// by the bootloader's diagnostic stack to segment and reassemble messages
// larger than a single CAN data frame.
//
// The protocol core is a cooperative, tick-driven scheduler: PeriodFunction
// must be called at a fixed period and drives every timer and retry in the
// module. There is no internal goroutine and no blocking call; all work
// happens on the caller's own goroutine inside RxIndication, TxConfirmation
// and PeriodFunction.
package cantp
