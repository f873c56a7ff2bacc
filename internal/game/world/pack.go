package world

import "fmt"

// EntriesPerWord returns how many bpe-bit entries fit in one 64-bit word.
// Entries never straddle word boundaries.
func EntriesPerWord(bpe int) int { return 64 / bpe }

// WordCount returns the number of words needed for n entries.
func WordCount(n, bpe int) int {
	per := EntriesPerWord(bpe)
	return (n + per - 1) / per
}

// Pack packs ids into words, entry i occupying bits
// [(i%per)*bpe, (i%per)*bpe+bpe) of word i/per.
//
// Precondition: 1 <= bpe <= 16 and every id fits in bpe bits.
func Pack(ids []BlockState, bpe int) ([]uint64, error) {
	if bpe < 1 || bpe > 16 {
		return nil, fmt.Errorf("bits per entry %d out of range", bpe)
	}
	per := EntriesPerWord(bpe)
	limit := uint64(1)<<bpe - 1
	words := make([]uint64, WordCount(len(ids), bpe))
	for i, id := range ids {
		v := uint64(id)
		if v > limit {
			return nil, fmt.Errorf("entry %d: id %d exceeds %d bits", i, id, bpe)
		}
		words[i/per] |= v << ((i % per) * bpe)
	}
	return words, nil
}

// Unpack is the inverse of Pack for n entries.
func Unpack(words []uint64, bpe, n int) ([]BlockState, error) {
	if bpe < 1 || bpe > 16 {
		return nil, fmt.Errorf("bits per entry %d out of range", bpe)
	}
	if len(words) < WordCount(n, bpe) {
		return nil, fmt.Errorf("%d words cannot hold %d entries", len(words), n)
	}
	per := EntriesPerWord(bpe)
	mask := uint64(1)<<bpe - 1
	ids := make([]BlockState, n)
	for i := range ids {
		ids[i] = BlockState(words[i/per] >> ((i % per) * bpe) & mask)
	}
	return ids, nil
}
