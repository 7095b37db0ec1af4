package accounts

import "encoding/binary"

// Reserve quantities below this are treated as dust or unrelated bytes.
const minPlausibleReserve = 1_000

// maxPlausibleReserve caps believable reserve magnitudes at 10^18.
const maxPlausibleReserve = 1_000_000_000_000_000_000

// minReserveBufferLen rejects buffers too small to be a pool account at all.
const minReserveBufferLen = 100

// ReserveDecoder extracts reserve quantities from a pool account buffer.
// The pool program's layout varies across versions, so decoding sits behind
// this interface and alternate decoders can be substituted without touching
// the fetch strategies.
type ReserveDecoder interface {
	DecodeReserves(data []byte) (Reserves, bool)
}

// OffsetProbeDecoder locates reserves by probing a fixed set of candidate
// offsets and keeping the first pair of u64 values with plausible reserve
// magnitudes. The candidates cover the known pool layout generations:
// discriminator plus six addresses, discriminator plus five addresses, and
// the trailing 16 bytes of the account.
type OffsetProbeDecoder struct{}

// DecodeReserves probes the candidate offsets in order and returns the first
// plausible reserve pair, or ok=false when the buffer is too short or no
// candidate qualifies.
func (OffsetProbeDecoder) DecodeReserves(data []byte) (Reserves, bool) {
	if len(data) < minReserveBufferLen {
		return Reserves{}, false
	}

	candidates := []int{
		discriminatorLen + 6*addressLen,
		discriminatorLen + 5*addressLen,
		len(data) - 16,
	}

	for _, off := range candidates {
		if off < 0 || off+16 > len(data) {
			continue
		}
		base := binary.LittleEndian.Uint64(data[off:])
		quote := binary.LittleEndian.Uint64(data[off+8:])
		if plausibleReserve(base) && plausibleReserve(quote) {
			return Reserves{Base: base, Quote: quote}, true
		}
	}

	return Reserves{}, false
}

func plausibleReserve(v uint64) bool {
	return v > minPlausibleReserve && v < maxPlausibleReserve
}

var _ ReserveDecoder = OffsetProbeDecoder{}
