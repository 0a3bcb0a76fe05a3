package common

// WipeByteArray overwrites the contents of b with zeros. Used to drop
// access tokens read from the terminal once they have been parsed.
//
// A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
