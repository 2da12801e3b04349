package diag

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultLineLen is the number of frames per line in RenderMatch.
const DefaultLineLen = 50

// RenderMatch writes three blocks of levels, taken at the start, the middle
// and the end of the reference. Each block has a REF line, a REC line read
// matchPosition frames further into the recording, and a COR line. Nil
// sequences are skipped.
func RenderMatch(w io.Writer, matchPosition int, reference, recorded, corrected []int, lineLen int) error {
	if lineLen <= 0 {
		lineLen = DefaultLineLen
	}
	n := len(reference)
	if reference == nil {
		n = len(corrected)
	}

	var b strings.Builder
	for _, line := range []int{0, n / 2, max(0, n-lineLen)} {
		if reference != nil {
			writeLevels(&b, "REF", line, window(reference, line, lineLen))
		}
		if recorded != nil {
			writeLevels(&b, "REC", line, window(recorded, line+matchPosition, lineLen))
		}
		if corrected != nil {
			writeLevels(&b, "COR", line, window(corrected, line, lineLen))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func window(seq []int, start, length int) []int {
	start = min(max(0, start), len(seq))
	return seq[start:min(start+length, len(seq))]
}

func writeLevels(b *strings.Builder, tag string, line int, levels []int) {
	fmt.Fprintf(b, "%s [%d] ", tag, line)
	for i, v := range levels {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte('\n')
}
