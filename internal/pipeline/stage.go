package pipeline

// Stage is a pipeline state for one article. Articles move forward only;
// FAILED is reachable from any stage.
type Stage string

const (
	StageCollected       Stage = "COLLECTED"
	StageAnalyzed        Stage = "ANALYZED"
	StageCrossReferenced Stage = "CROSS_REFERENCED"
	StageBiasChecked     Stage = "BIAS_CHECKED"
	StageGraphBuilt      Stage = "GRAPH_BUILT"
	StageDone            Stage = "DONE"
	StageFailed          Stage = "FAILED"
)

// routeAfterAnalyze decides the stage following analysis: articles with no
// claims have nothing to cross-reference and go straight to graph build
func routeAfterAnalyze(numClaims int) Stage {
	if numClaims > 0 {
		return StageCrossReferenced
	}
	return StageGraphBuilt
}

// routeAfterCrossReference decides the stage following cross-reference:
// the bias check runs only when contradictions were found
func routeAfterCrossReference(numCandidates int) Stage {
	if numCandidates > 0 {
		return StageBiasChecked
	}
	return StageGraphBuilt
}
