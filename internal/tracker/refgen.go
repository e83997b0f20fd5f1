package tracker

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
)

// newPhxRef returns a base64-encoded random 64-bit value, used as both a
// presence's phx_ref and a transfer_req's correlation id — both need only
// be unique, not sequential.
func newPhxRef() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable; a stub value
		// keeps the server from panicking at the cost of a (vanishingly
		// unlikely) collision.
		return "ref-unavailable"
	}
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// newVsn returns a random 64-bit nonce for a replica's identity, per
// spec.md §3 ("a monotonic timestamp or random 64-bit value"). A random
// value is used here rather than a timestamp so two replicas started in
// the same process within the same clock tick (as in tests) never
// collide.
func newVsn() int64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	v := int64(binary.BigEndian.Uint64(buf[:]))
	if v < 0 {
		v = -v
	}
	return v
}
