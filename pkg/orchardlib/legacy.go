package orchardlib

// ZcashGetOrchardFVK returns the external full viewing key of sk.
//
// Deprecated: use DeriveFullViewingKey.
func ZcashGetOrchardFVK(sk []byte) ([]byte, error) {
	return DeriveFullViewingKey(sk, false)
}

// ZcashGetOrchardIVK returns the external incoming viewing key of sk.
//
// Deprecated: use DeriveIncomingViewingKey on the full viewing key.
func ZcashGetOrchardIVK(sk []byte) ([]byte, error) {
	fvk, err := DeriveFullViewingKey(sk, false)
	if err != nil {
		return nil, err
	}
	return DeriveIncomingViewingKey(fvk, false)
}

// ZcashGetOrchardAddress returns the external address of sk at index.
//
// Deprecated: use DeriveAddress on the full viewing key.
func ZcashGetOrchardAddress(sk []byte, index uint64) ([]byte, error) {
	fvk, err := DeriveFullViewingKey(sk, false)
	if err != nil {
		return nil, err
	}
	return DeriveAddress(fvk, index, false)
}

// ZcashF4Jumble applies F4Jumble.
//
// Deprecated: use F4Jumble.
func ZcashF4Jumble(msg []byte) ([]byte, error) {
	return F4Jumble(msg)
}

// ZcashF4JumbleInv inverts F4Jumble.
//
// Deprecated: use F4JumbleInv.
func ZcashF4JumbleInv(msg []byte) ([]byte, error) {
	return F4JumbleInv(msg)
}

// ZcashShield builds a shielded bundle.
//
// Deprecated: use Shield.
func ZcashShield(actionInfo, rngConfig []byte) ([]byte, error) {
	return Shield(actionInfo, rngConfig)
}

// ZcashSign produces a spend authorization signature.
//
// Deprecated: use Sign.
func ZcashSign(sk, alpha, sighash, rngConfig []byte) ([]byte, error) {
	return Sign(sk, alpha, sighash, rngConfig)
}
