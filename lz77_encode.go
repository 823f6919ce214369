package rdb

// compressLZ77 is the encoder side of decompressLZ77: it emits the same
// FastLZ Level-1 instruction stream (literal runs / short matches / long
// matches) that lz77.go already knows how to read back. The teacher
// never needed a compressor (it only ever reads snapshots someone else
// wrote); this one exists so the legacy saver can produce the LZF
// string encoding spec.md §4.2 describes alongside the other three.
//
// ok is false when compressing would not help (the caller should fall
// back to the raw string encoding in that case, same as real Redis
// does when LZF doesn't shrink a string).
func compressLZ77(src []byte) (out []byte, ok bool) {
	const (
		minMatch    = 3
		maxMatch    = 264 // 9 + 255
		maxDistance = 8192
		hashLog     = 13
		hashSize    = 1 << hashLog
	)

	n := len(src)
	if n < 4 {
		return nil, false
	}

	htab := make([]int, hashSize)
	for i := range htab {
		htab[i] = -1
	}

	hash := func(p int) int {
		seq := uint32(src[p]) | uint32(src[p+1])<<8 | uint32(src[p+2])<<16
		return int((seq * 2654435761) >> (32 - hashLog))
	}

	out = make([]byte, 0, n)
	literalStart := 0

	flushLiterals := func(end int) {
		for literalStart < end {
			run := end - literalStart
			if run > 32 {
				run = 32
			}
			out = append(out, byte(run-1))
			out = append(out, src[literalStart:literalStart+run]...)
			literalStart += run
		}
	}

	ip := 0
	for ip+minMatch <= n {
		h := hash(ip)
		cand := htab[h]
		htab[h] = ip

		if cand >= 0 && ip-cand <= maxDistance && src[cand] == src[ip] && src[cand+1] == src[ip+1] && src[cand+2] == src[ip+2] {
			matchLen := 3
			maxLen := n - ip
			if maxLen > maxMatch {
				maxLen = maxMatch
			}
			for matchLen < maxLen && src[cand+matchLen] == src[ip+matchLen] {
				matchLen++
			}

			flushLiterals(ip)

			distance := ip - cand
			top3 := matchLen - 2
			if top3 > 7 {
				top3 = 7
			}
			ctrl := byte(top3<<5) | byte((distance-1)>>8)
			out = append(out, ctrl)
			if top3 == 7 {
				out = append(out, byte(matchLen-9))
			}
			out = append(out, byte((distance-1)&0xFF))

			end := ip + matchLen
			for p := ip + 1; p < end && p+minMatch <= n; p++ {
				htab[hash(p)] = p
			}
			ip = end
			literalStart = ip
			continue
		}

		ip++
	}

	flushLiterals(n)

	if len(out) >= n {
		return nil, false
	}
	return out, true
}
