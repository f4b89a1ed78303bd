// Package keys derives the cache keys under which tower locations are stored.
package keys

import (
	"errors"
	"fmt"
	"strings"
)

const sep = "."

var ErrMalformed = errors.New("malformed tower key")

// Tower joins the identity components as MCC.MNC.LAC.CID. Components are used
// verbatim so that keys built at load time and at lookup time are byte-identical.
func Tower(mcc, mnc, lac, cid string) string {
	var b strings.Builder
	b.Grow(len(mcc) + len(mnc) + len(lac) + len(cid) + 3*len(sep))
	b.WriteString(mcc)
	b.WriteString(sep)
	b.WriteString(mnc)
	b.WriteString(sep)
	b.WriteString(lac)
	b.WriteString(sep)
	b.WriteString(cid)
	return b.String()
}

// Parse splits a key produced by Tower back into its components.
func Parse(key string) (mcc, mnc, lac, cid string, err error) {
	parts := strings.Split(strings.TrimSpace(key), sep)
	if len(parts) != 4 {
		return "", "", "", "", fmt.Errorf("%w: %q has %d components", ErrMalformed, key, len(parts))
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", "", fmt.Errorf("%w: %q has an empty component", ErrMalformed, key)
		}
	}
	return parts[0], parts[1], parts[2], parts[3], nil
}
