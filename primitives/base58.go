package primitives

import "github.com/mr-tron/base58"

// base58Encode/base58Decode centralize the one external dependency used for
// all base58-family encodings (base58check and CB58 both sit on top of it).
func base58Encode(b []byte) string {
	return base58.Encode(b)
}

func base58Decode(s string) ([]byte, error) {
	return base58.Decode(s)
}
