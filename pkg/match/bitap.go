package match

import (
	"math"
	"strings"
)

// maxBits is the widest pattern one bit-parallel pass can track.
// Longer patterns are split into maxBits wide chunks.
const maxBits = 32

type bitapChunk struct {
	pattern  []rune
	alphabet map[rune]uint32
	offset   int
}

// bitapSearcher scores one lowercased pattern against many texts.
// It is immutable after construction and safe for concurrent use.
type bitapSearcher struct {
	pattern []rune
	chunks  []bitapChunk
	opts    FuzzyOptions
}

func newBitapSearcher(pattern string, opts FuzzyOptions) *bitapSearcher {
	p := []rune(strings.ToLower(pattern))
	s := &bitapSearcher{pattern: p, opts: opts}

	n := len(p)
	if n <= maxBits {
		s.addChunk(p, 0)
		return s
	}

	remainder := n % maxBits
	end := n - remainder
	for i := 0; i < end; i += maxBits {
		s.addChunk(p[i:i+maxBits], i)
	}
	if remainder > 0 {
		// the tail chunk overlaps the previous one so it stays maxBits wide
		s.addChunk(p[n-maxBits:], n-maxBits)
	}
	return s
}

func (s *bitapSearcher) addChunk(p []rune, offset int) {
	s.chunks = append(s.chunks, bitapChunk{
		pattern:  p,
		alphabet: patternAlphabet(p),
		offset:   offset,
	})
}

// patternAlphabet maps each rune to the bit positions where it occurs,
// with the first pattern rune in the highest bit.
func patternAlphabet(p []rune) map[rune]uint32 {
	mask := make(map[rune]uint32, len(p))
	for i, r := range p {
		mask[r] |= 1 << uint(len(p)-i-1)
	}
	return mask
}

// searchIn scores a lowercased text. Chunk scores are averaged; the text
// matches if any chunk matches.
func (s *bitapSearcher) searchIn(text []rune) (bool, float64) {
	if runesEqual(s.pattern, text) {
		return true, 0
	}

	matched := false
	total := 0.0
	for _, ch := range s.chunks {
		ok, score := bitapSearch(text, ch, s.opts.Location+ch.offset, s.opts)
		if ok {
			matched = true
		}
		total += score
	}
	if !matched {
		return false, 1
	}
	return true, total / float64(len(s.chunks))
}

// bitapSearch runs the shift-or approximate search for one chunk, allowing
// up to len(pattern)-1 errors while the location-weighted score stays under
// the threshold.
func bitapSearch(text []rune, ch bitapChunk, location int, opts FuzzyOptions) (bool, float64) {
	pattern := ch.pattern
	patternLen := len(pattern)
	textLen := len(text)
	if patternLen == 0 {
		return false, 1
	}

	expected := max(0, min(location, textLen))
	threshold := opts.Threshold
	best := expected

	computeMatches := opts.MinMatchLen > 1
	var matchMask []bool
	if computeMatches {
		matchMask = make([]bool, textLen)
	}

	// exact occurrences tighten the threshold before the bit-parallel pass
	for {
		idx := indexRunes(text, pattern, best)
		if idx < 0 {
			break
		}
		score := bitapScore(patternLen, 0, idx, expected, opts.Distance)
		threshold = math.Min(score, threshold)
		best = idx + patternLen
		if computeMatches {
			for i := 0; i < patternLen; i++ {
				matchMask[idx+i] = true
			}
		}
	}

	best = -1
	finalScore := 1.0
	binMax := patternLen + textLen
	hit := uint32(1) << uint(patternLen-1)
	var lastBits []uint32

	for errs := 0; errs < patternLen; errs++ {
		// widest window around expected that can still beat the threshold
		binMin, binMid := 0, binMax
		for binMin < binMid {
			if bitapScore(patternLen, errs, expected+binMid, expected, opts.Distance) <= threshold {
				binMin = binMid
			} else {
				binMax = binMid
			}
			binMid = (binMax-binMin)/2 + binMin
		}
		binMax = binMid

		start := max(1, expected-binMid+1)
		finish := min(expected+binMid, textLen) + patternLen

		bits := make([]uint32, finish+2)
		bits[finish+1] = (1 << uint(errs)) - 1

		for j := finish; j >= start; j-- {
			loc := j - 1
			var charMatch uint32
			if loc < textLen {
				charMatch = ch.alphabet[text[loc]]
				if computeMatches {
					matchMask[loc] = charMatch != 0
				}
			}

			bits[j] = ((bits[j+1] << 1) | 1) & charMatch
			if errs > 0 {
				bits[j] |= ((bitAt(lastBits, j+1) | bitAt(lastBits, j)) << 1) | 1 | bitAt(lastBits, j+1)
			}

			if bits[j]&hit != 0 {
				finalScore = bitapScore(patternLen, errs, loc, expected, opts.Distance)
				if finalScore <= threshold {
					threshold = finalScore
					best = loc
					if best <= expected {
						break
					}
					start = max(1, 2*expected-best)
				}
			}
		}

		// one more error can no longer beat the best score
		if bitapScore(patternLen, errs+1, expected, expected, opts.Distance) > threshold {
			break
		}
		lastBits = bits
	}

	matched := best >= 0
	if computeMatches && !hasFragment(matchMask, opts.MinMatchLen) {
		matched = false
	}
	return matched, math.Max(0.001, finalScore)
}

// bitapScore combines error ratio and distance from the expected location.
func bitapScore(patternLen, errs, current, expected, distance int) float64 {
	accuracy := float64(errs) / float64(patternLen)
	proximity := current - expected
	if proximity < 0 {
		proximity = -proximity
	}
	if distance == 0 {
		if proximity != 0 {
			return 1
		}
		return accuracy
	}
	return accuracy + float64(proximity)/float64(distance)
}

// hasFragment reports whether mask holds a run of at least minLen set entries.
func hasFragment(mask []bool, minLen int) bool {
	run := 0
	for _, m := range mask {
		if !m {
			run = 0
			continue
		}
		run++
		if run >= minLen {
			return true
		}
	}
	return false
}

func bitAt(bits []uint32, i int) uint32 {
	if i < 0 || i >= len(bits) {
		return 0
	}
	return bits[i]
}

// indexRunes returns the first index >= from where needle occurs in haystack, or -1.
func indexRunes(haystack, needle []rune, from int) int {
	if from < 0 {
		from = 0
	}
	last := len(haystack) - len(needle)
	for i := from; i <= last; i++ {
		if runesEqual(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
