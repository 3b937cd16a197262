package randstr

import (
	"crypto/rand"
)

// Generator produces random strings over a fixed alphabet using crypto/rand.
type Generator struct {
	alphabet []byte
}

func New(alphabet []byte) *Generator {
	if len(alphabet) == 0 || len(alphabet) > 256 {
		panic("randstr: alphabet length must be in [1, 256]")
	}
	return &Generator{alphabet: alphabet}
}

// GenerateRandomString returns a string of the given length. Bytes are
// rejection-sampled so every alphabet character is equally likely.
func (g *Generator) GenerateRandomString(length int) string {
	out := make([]byte, 0, length)
	buf := make([]byte, length)

	// limit is the largest multiple of len(alphabet) that fits in a byte
	limit := byte(256 - 256%len(g.alphabet))

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			panic("randstr: crypto/rand failed: " + err.Error())
		}
		for _, b := range buf {
			if limit != 0 && b >= limit {
				continue
			}
			out = append(out, g.alphabet[int(b)%len(g.alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out)
}
