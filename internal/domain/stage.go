package domain

// Stage is a candidate's position in the evaluation pipeline.
type Stage string

// Pipeline stages in order. A candidate advances one stage per satisfied
// signal requirement; StageRejected is terminal and reachable from any
// pre-executing stage.
const (
	StageDiscovered Stage = "DISCOVERED"
	StageFiltered   Stage = "FILTERED"
	StageVetted     Stage = "VETTED"
	StageAnalyzed   Stage = "ANALYZED"
	StageScored     Stage = "SCORED"
	StageMonitored  Stage = "MONITORED"
	StageDecided    Stage = "DECIDED"
	StageExecuting  Stage = "EXECUTING"
	StageSettled    Stage = "SETTLED"
	StageAborted    Stage = "ABORTED"
	StageRejected   Stage = "REJECTED"
)

// stageTransitions is the legal forward-transition table.
var stageTransitions = map[Stage][]Stage{
	StageDiscovered: {StageFiltered, StageRejected},
	StageFiltered:   {StageVetted, StageRejected},
	StageVetted:     {StageAnalyzed, StageRejected},
	StageAnalyzed:   {StageScored, StageRejected},
	StageScored:     {StageMonitored, StageRejected},
	StageMonitored:  {StageDecided, StageRejected},
	StageDecided:    {StageExecuting, StageRejected},
	StageExecuting:  {StageSettled, StageAborted},
}

// CanTransition reports whether moving from one stage to another is legal.
func CanTransition(from, to Stage) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a stage ends the candidate's lifecycle.
func (s Stage) Terminal() bool {
	switch s {
	case StageSettled, StageAborted, StageRejected:
		return true
	}
	return false
}

// RequiredSource returns the signal source whose ok result is required to
// advance past the given stage, or SourceNone when advancement is not
// signal-driven (decision and execution stages).
func (s Stage) RequiredSource() Source {
	switch s {
	case StageDiscovered:
		return SourceFilter
	case StageFiltered:
		return SourceVetting
	case StageVetted:
		return SourceDistribution
	case StageAnalyzed:
		return SourceSentiment
	case StageScored:
		return SourceSmartMoney
	}
	return SourceNone
}

// NextStage returns the stage reached after the required source reports ok.
func (s Stage) NextStage() Stage {
	switch s {
	case StageDiscovered:
		return StageFiltered
	case StageFiltered:
		return StageVetted
	case StageVetted:
		return StageAnalyzed
	case StageAnalyzed:
		return StageScored
	case StageScored:
		return StageMonitored
	}
	return s
}
