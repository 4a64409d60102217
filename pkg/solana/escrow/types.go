package escrow

type EscrowDataVersion uint8

const (
	UnknownDataVersion EscrowDataVersion = iota
	DataVersion1
)

func putEscrowDataVersion(dst []byte, v EscrowDataVersion, offset *int) {
	putUint8(dst, uint8(v), offset)
}

func getEscrowDataVersion(src []byte, dst *EscrowDataVersion, offset *int) {
	var v uint8
	getUint8(src, &v, offset)
	*dst = EscrowDataVersion(v)
}

// EscrowState is the lifecycle position of an escrow as observed by this
// client. It is derived from account data, never stored on chain.
type EscrowState uint8

const (
	StateUnknown EscrowState = iota
	StateOpen
	StatePartiallyFilled
	StateFilled
	StateExpired
)

func (s EscrowState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateOpen:
		return "open"
	case StatePartiallyFilled:
		return "partially_filled"
	case StateFilled:
		return "filled"
	case StateExpired:
		return "expired"
	}

	return "unknown"
}
