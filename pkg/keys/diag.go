//go:build diag

package keys

// DiagSpendAuthorizingKey exposes the sign-normalized ask of sk for
// known-answer tests. It exists only in builds with the diag tag.
func DiagSpendAuthorizingKey(sk *SpendingKey) ([32]byte, error) {
	ask, _, err := sk.spendAuthorizingKey()
	if err != nil {
		return [32]byte{}, err
	}
	b := ask.Bytes()
	ask.Zero()
	return b, nil
}
