// Package randid generates short random identifiers.
package randid

import "crypto/rand"

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a random string of length n drawn from [a-z0-9].
func Generate(n int) string {
	if n <= 0 {
		return ""
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("randid: crypto/rand failed: " + err.Error())
	}

	// 252 is the largest multiple of 36 below 256; rejecting bytes above it
	// keeps the distribution uniform.
	out := make([]byte, 0, n)
	for len(out) < n {
		for _, b := range buf {
			if b >= 252 {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
		if len(out) < n {
			if _, err := rand.Read(buf); err != nil {
				panic("randid: crypto/rand failed: " + err.Error())
			}
		}
	}
	return string(out)
}
