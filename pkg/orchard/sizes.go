package orchard

// Fixed encoding sizes, in bytes.
const (
	SpendingKeySize        = 32
	DiversifierSize        = 11
	AddressSize            = 43 // d || pk_d
	FullViewingKeySize     = 96 // ak || nk || rivk
	IncomingViewingKeySize = 64 // dk || ivk
	OutgoingViewingKeySize = 32
	NoteSize               = 115 // address || value || rho || rseed
	MemoSize               = 512
	NotePlaintextSize      = 564
	EncCiphertextSize      = 580
	OutCiphertextSize      = 80
	SignatureSize          = 64
)

// MaxMoney is the largest value, in zatoshis, a single note or a value
// balance may carry.
const MaxMoney uint64 = 21_000_000 * 100_000_000
