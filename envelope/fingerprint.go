package envelope

import (
	"encoding/binary"
	"hash/fnv"
)

// Fingerprint is a stable 64-bit hash over the semantic content of a
// mutation request: independent of signature sets and timestamps, so two
// envelopes from different originators proposing the same mutation for the
// same user agree on it.
type Fingerprint uint64

// Compute derives e's Fingerprint from (request.Kind, request.Payload,
// user_id, calling_user) only. Request.Payload is always produced by
// json.Marshal-ing a fixed Go struct (never a map), so field order is
// already canonical — no extra sort step is needed the way a map-keyed
// encoding would require.
func Compute(e *Envelope) Fingerprint {
	h := fnv.New64a()
	writeString(h, string(e.Request.Kind))
	h.Write(e.Request.Payload)
	writeString(h, e.UserID.String())
	writeString(h, e.CallingUser.String())
	return Fingerprint(h.Sum64())
}

// TallyHash extends Compute(e) with the envelope's datetime, so identical
// mutations resubmitted at different instants tally independently.
func TallyHash(e *Envelope) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(Compute(e)))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(e.DatetimeUnixNano))
	h.Write(buf[:])
	return h.Sum64()
}

func writeString(h interface{ Write([]byte) (int, error) }, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0}) // separator, prevents "ab"+"c" colliding with "a"+"bc"
}
