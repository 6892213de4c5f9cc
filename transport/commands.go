package transport

// SD physical-layer v2 command numbers, SPI mode (spec §6). Bit-exact; do
// not renumber.
const (
	ReadSingleBlock      byte = 17 // CMD17
	WriteBlock           byte = 24 // CMD24
	ReadMultipleBlock    byte = 18 // CMD18
	WriteMultipleBlock   byte = 25 // CMD25
	StopTransmission     byte = 12 // CMD12
	EraseWrBlkStartAddr  byte = 32 // CMD32
	EraseWrBlkEndAddr    byte = 33 // CMD33
	Erase                byte = 38 // CMD38
	AppCmd               byte = 55 // CMD55
	SendNumWrBlocks      byte = 22 // ACMD22
)

// Token values (spec §6, glossary).
const (
	StartBlockToken      byte = 0xFE // single/multi-read, single-write
	StartMultiWriteToken byte = 0xFC // multi-write
	StopMultiWriteToken  byte = 0xFD // host-emitted, ends a multi-block write stream
)

// Bounded poll limits (spec §5). These are iteration counts, not wall-clock
// timers: the hardware has no clock the core can rely on.
const (
	TimeoutLimit           = 0xFE
	CardBusyTimeoutLimit   = 4 * TimeoutLimit
	MultiStartTimeoutLimit = 0x511
	EraseBusyTimeoutLimit  = 0xFFFE
)

const BlockSize = 512
