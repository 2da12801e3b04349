package synchro

// FindLocalMismatches compares the recorded levels with a reference marker
// frame by frame over their common length. For every frame e where they
// disagree, it looks for the closest frame in marker[e-window, e+window]
// carrying the recorded level and returns it as a Replacement. On equal
// distance the earlier frame wins. Mismatches with no candidate in the
// window are returned in unresolved and are left uncorrected.
func FindLocalMismatches(signals, marker []int, window int) (replacements []Replacement, unresolved []int) {
	n := len(signals)
	if len(marker) < n {
		n = len(marker)
	}
	if window < 0 {
		window = 0
	}

	for e := 0; e < n; e++ {
		want := signals[e]
		if marker[e] == want {
			continue
		}
		src, ok := closestMatch(marker, e, window, want)
		if !ok {
			unresolved = append(unresolved, e)
			continue
		}
		replacements = append(replacements, Replacement{Frame: e, Source: src})
	}
	return replacements, unresolved
}

// closestMatch scans outward from e so the first hit is the closest one,
// checking the left side first at each distance.
func closestMatch(marker []int, e, window, want int) (int, bool) {
	for d := 1; d <= window; d++ {
		if l := e - d; l >= 0 && marker[l] == want {
			return l, true
		}
		if r := e + d; r < len(marker) && marker[r] == want {
			return r, true
		}
	}
	return 0, false
}
