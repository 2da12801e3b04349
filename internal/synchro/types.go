package synchro

import (
	"encoding/json"
	"fmt"
)

// EditOp is the kind of a single edit applied to a reference sequence.
type EditOp int

const (
	// Insert duplicates the reference element at the edit position.
	Insert EditOp = iota
	// Delete removes the reference element at the edit position.
	Delete
)

func (op EditOp) String() string {
	switch op {
	case Insert:
		return "ins"
	case Delete:
		return "del"
	default:
		return fmt.Sprintf("EditOp(%d)", int(op))
	}
}

// MarshalJSON encodes the op with its short name so audit logs stay readable.
func (op EditOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.String())
}

// UnmarshalJSON accepts the short names produced by MarshalJSON.
func (op *EditOp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEditOp(s)
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// ParseEditOp parses "ins"/"insert" and "del"/"delete".
func ParseEditOp(s string) (EditOp, error) {
	switch s {
	case "ins", "insert":
		return Insert, nil
	case "del", "delete":
		return Delete, nil
	}
	return 0, fmt.Errorf("unknown edit op %q", s)
}

// Edit is one entry of an edit script. Position is expressed in the
// coordinate space of the recorded signal, which is also the coordinate
// space of the reference after all preceding edits have been applied.
type Edit struct {
	Position int    `json:"position"`
	Op       EditOp `json:"op"`
}

func (e Edit) String() string {
	return fmt.Sprintf("%s@%d", e.Op, e.Position)
}

// Replacement records a frame whose reference values were copied from a
// nearby frame with the expected level.
type Replacement struct {
	Frame  int `json:"frame"`
	Source int `json:"source"`
}

// Stimulus is the per-frame reference produced by the stimulus compiler.
// Intensity holds one flattened frame per entry. Shader is optional and
// nil when the stimulus carries no shader metadata.
type Stimulus struct {
	Intensity [][]float64 `json:"intensity"`
	Marker    []int       `json:"marker"`
	Shader    [][]float64 `json:"shader,omitempty"`
}

// Len returns the number of frames in the stimulus.
func (s Stimulus) Len() int {
	return len(s.Marker)
}

// Validate checks that every per-frame array has the marker's length.
func (s Stimulus) Validate() error {
	if len(s.Intensity) != len(s.Marker) {
		return fmt.Errorf("intensity has %d frames, marker has %d", len(s.Intensity), len(s.Marker))
	}
	if s.Shader != nil && len(s.Shader) != len(s.Marker) {
		return fmt.Errorf("shader has %d frames, marker has %d", len(s.Shader), len(s.Marker))
	}
	return nil
}

// Clone returns a deep copy of the stimulus.
func (s Stimulus) Clone() Stimulus {
	out := Stimulus{
		Intensity: cloneFrames(s.Intensity),
		Marker:    append([]int(nil), s.Marker...),
	}
	if s.Shader != nil {
		out.Shader = cloneFrames(s.Shader)
	}
	return out
}

// Select builds a new stimulus whose frame k is a copy of frame idx[k].
func (s Stimulus) Select(idx []int) Stimulus {
	out := Stimulus{
		Intensity: make([][]float64, len(idx)),
		Marker:    make([]int, len(idx)),
	}
	if s.Shader != nil {
		out.Shader = make([][]float64, len(idx))
	}
	for k, src := range idx {
		out.Intensity[k] = append([]float64(nil), s.Intensity[src]...)
		out.Marker[k] = s.Marker[src]
		if s.Shader != nil {
			out.Shader[k] = append([]float64(nil), s.Shader[src]...)
		}
	}
	return out
}

func cloneFrames(frames [][]float64) [][]float64 {
	if frames == nil {
		return nil
	}
	out := make([][]float64, len(frames))
	for i, f := range frames {
		out[i] = append([]float64(nil), f...)
	}
	return out
}
