package compositor

import "math/bits"

// idWords holds MaxWindowID bits' worth of allocation state. The reference
// design uses eight u128 words; Go has no native u128, so this uses sixteen
// u64 words instead — a compactness choice, not a contract (§9 notes the
// bitmap itself isn't required, only MaxWindowID and reuse semantics are).
const idWords = MaxWindowID / 64

type idAllocator struct {
	bits [idWords]uint64
}

// add scans for the first clear bit, sets it, and returns its index. It
// reports ok=false once every id in [0, MaxWindowID) is in use.
func (a *idAllocator) add() (WindowID, bool) {
	for w := 0; w < idWords; w++ {
		word := a.bits[w]
		if word == ^uint64(0) {
			continue
		}
		bit := bits.TrailingZeros64(^word)
		a.bits[w] |= 1 << uint(bit)
		return WindowID(w*64 + bit), true
	}
	return 0, false
}

// remove clears id's bit. It reports true iff the bit was previously set —
// deallocation succeeds iff the id was live, per §9's resolution of the
// ambiguous behaviour in one revision of the reference implementation.
func (a *idAllocator) remove(id WindowID) bool {
	if int(id) >= MaxWindowID {
		return false
	}
	w, bit := int(id)/64, uint(int(id)%64)
	mask := uint64(1) << bit
	was := a.bits[w]&mask != 0
	a.bits[w] &^= mask
	return was
}
