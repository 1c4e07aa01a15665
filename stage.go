package scribe

// Stage identifies a phase of the generation pipeline. Stages form a fixed
// total order; within one session the stage index never decreases and an
// earlier stage is never revisited.
type Stage string

const (
	StageInit       Stage = "init"
	StageAnalysis   Stage = "analysis"
	StageTemplate   Stage = "template"
	StageGeneration Stage = "generation"
)

// StageCount is the length of the canonical stage order, for
// "step X of N" displays.
const StageCount = 4

var stageOrder = map[Stage]int{
	StageInit:       0,
	StageAnalysis:   1,
	StageTemplate:   2,
	StageGeneration: 3,
}

// Index returns the position of s in the canonical stage order, or -1 when
// s is not a known stage.
func (s Stage) Index() int {
	i, ok := stageOrder[s]
	if !ok {
		return -1
	}
	return i
}

// Known reports whether s is one of the canonical stages.
func (s Stage) Known() bool {
	_, ok := stageOrder[s]
	return ok
}

// Stages returns the canonical stage order.
func Stages() []Stage {
	return []Stage{StageInit, StageAnalysis, StageTemplate, StageGeneration}
}

// ValidTransition reports whether a session may move from prev to next:
// true iff both stages are known and next does not precede prev.
func ValidTransition(prev, next Stage) bool {
	pi, ni := prev.Index(), next.Index()
	if pi < 0 || ni < 0 {
		return false
	}
	return ni >= pi
}
