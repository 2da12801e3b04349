package repair

import (
	"fmt"
	"strings"

	"github.com/banshee-data/framesync/internal/monitoring"
	"github.com/banshee-data/framesync/internal/synchro"
	"github.com/banshee-data/framesync/internal/synchro/align"
)

var logf = monitoring.Tagged("repair")

// DefaultWindow is the half-width, in frames, of the local mismatch search.
const DefaultWindow = 5

// Strategy selects how Correct obtains its edit script.
type Strategy int

const (
	// NoShift skips global realignment and only patches local mismatches.
	NoShift Strategy = iota
	// Convolution uses align.IterativeShiftCorrection.
	Convolution
	// BandedAlign uses align.Align.
	BandedAlign
)

func (s Strategy) String() string {
	switch s {
	case NoShift:
		return "no_shift"
	case Convolution:
		return "conv"
	case BandedAlign:
		return "nw"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts "no_shift", "noshift", "conv", "convolution", "nw"
// and "banded", ignoring case.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "no_shift", "noshift":
		return NoShift, nil
	case "conv", "convolution":
		return Convolution, nil
	case "nw", "banded":
		return BandedAlign, nil
	}
	return 0, fmt.Errorf("%w: %q", synchro.ErrUnknownStrategy, name)
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Options configures Correct.
type Options struct {
	Strategy Strategy
	// Align is used by BandedAlign.
	Align align.Params
	// Window is the local mismatch search half-width, also used by the
	// Convolution shift estimates. Zero means DefaultWindow.
	Window int
}

// DefaultOptions returns banded alignment with the default parameters.
func DefaultOptions() Options {
	return Options{
		Strategy: BandedAlign,
		Align:    align.DefaultParams(),
		Window:   DefaultWindow,
	}
}

// Correction is the result of Correct.
type Correction struct {
	Stimulus     synchro.Stimulus      `json:"stimulus"`
	Strategy     Strategy              `json:"strategy"`
	Edits        []synchro.Edit        `json:"edits"`
	Replacements []synchro.Replacement `json:"replacements"`
	// Unresolved lists mismatching frames with no candidate in the window.
	// They are left as the edits produced them.
	Unresolved []int `json:"unresolved"`
	// Alignment is set for BandedAlign only.
	Alignment *align.Alignment `json:"alignment,omitempty"`
}

// Correct realigns stim to the recorded levels in signals and repairs the
// remaining single-frame mismatches. The corrected stimulus has the same
// number of frames as stim. Each replaced frame is copied from the edited
// stimulus as it was before any replacement, so replacements never chain.
func Correct(stim synchro.Stimulus, signals []int, opts Options) (*Correction, error) {
	if stim.Len() == 0 || len(signals) == 0 {
		return nil, synchro.ErrEmptySequence
	}
	if err := stim.Validate(); err != nil {
		return nil, err
	}
	window := opts.Window
	if window == 0 {
		window = DefaultWindow
	}

	c := &Correction{Strategy: opts.Strategy}
	switch opts.Strategy {
	case NoShift:
	case Convolution:
		c.Edits = align.IterativeShiftCorrection(signals, stim.Marker, window)
	case BandedAlign:
		a, err := align.Align(signals, stim.Marker, opts.Align)
		if err != nil {
			return nil, fmt.Errorf("banded alignment: %w", err)
		}
		c.Edits, c.Alignment = a.Edits, a
		if a.NearOverflow() {
			logf("edit script may be wrong: alignment reached offset %d with rowside %d", a.MaxOffset, a.Rowside)
		}
	default:
		return nil, fmt.Errorf("%w: %v", synchro.ErrUnknownStrategy, opts.Strategy)
	}

	edited, err := ApplyEdits(stim, c.Edits)
	if err != nil {
		return nil, fmt.Errorf("apply %s edits: %w", opts.Strategy, err)
	}

	c.Replacements, c.Unresolved = synchro.FindLocalMismatches(signals, edited.Marker, window)
	if len(c.Unresolved) > 0 {
		logf("%d mismatching frames left unresolved (window %d)", len(c.Unresolved), window)
	}

	if len(c.Replacements) == 0 {
		c.Stimulus = edited
		return c, nil
	}
	idx := make([]int, edited.Len())
	for i := range idx {
		idx[i] = i
	}
	for _, r := range c.Replacements {
		idx[r.Frame] = r.Source
	}
	c.Stimulus = edited.Select(idx)
	return c, nil
}

// Trim applies Trim to the correction's stimulus and logs.
func (c *Correction) Trim(first, last int) (*Trimmed, error) {
	return Trim(first, last, c.Stimulus, c.Edits, c.Replacements)
}
