package workflow

import (
	"fmt"
	"strings"
)

// Validation error codes (W100-W199)
const (
	ErrNoStages          = "W100" // definition has no stages
	ErrDuplicateStage    = "W101" // two stages share an ID
	ErrNoEntryStage      = "W102" // no stage qualifies as entry
	ErrMultipleEntries   = "W103" // more than one stage qualifies as entry
	ErrUnknownDependency = "W104" // DependsOn references an undefined stage
	ErrUnknownEdgeStage  = "W105" // edge endpoint references an undefined stage
	ErrCycleDetected     = "W106" // dependency/routing graph has a cycle
	ErrUnreachableStage  = "W107" // stage cannot be reached from the entry stage
	ErrMissingFallback   = "W108" // stage has no fallback output
	ErrFallbackSchema    = "W109" // fallback does not satisfy the output schema
	ErrUnlabeledBranch   = "W110" // conditional edge has no label
	ErrMissingRunner     = "W111" // stage has no runner
	ErrReservedStageID   = "W112" // stage ID collides with a reserved namespace
	ErrUnknownDecision   = "W113" // Decision references an undefined stage
)

// ValidationError describes one structural problem in a definition.
type ValidationError struct {
	Code    string
	Stage   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("[%s] stage %q: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Validate checks the structural invariants of a definition.
// Returns all errors found (does not fail-fast).
//
// Invariants enforced:
//   - at least one stage, unique non-reserved stage IDs
//   - exactly one entry stage (reads at most the inputs namespace, has no
//     incoming edges)
//   - dependencies, edge endpoints, and the decision stage reference
//     defined stages
//   - the combined dependency + routing graph is acyclic
//   - every stage is reachable from the entry stage
//   - every stage declares a runner and a fallback output
//   - each fallback satisfies the stage's output schema
//   - conditional edges carry a label for the audit trail
func Validate(def *Definition) []ValidationError {
	var errs []ValidationError

	if len(def.Stages) == 0 {
		return []ValidationError{{Code: ErrNoStages, Message: "definition has no stages"}}
	}

	stageSet := make(map[string]bool, len(def.Stages))
	for _, s := range def.Stages {
		if s.ID == InputsNamespace || s.ID == End {
			errs = append(errs, ValidationError{Code: ErrReservedStageID, Stage: s.ID, Message: "stage ID is a reserved namespace"})
		}
		if stageSet[s.ID] {
			errs = append(errs, ValidationError{Code: ErrDuplicateStage, Stage: s.ID, Message: "duplicate stage ID"})
		}
		stageSet[s.ID] = true
	}

	errs = append(errs, validateEntry(def)...)
	errs = append(errs, validateReferences(def, stageSet)...)
	errs = append(errs, validateStageContracts(def)...)
	errs = append(errs, validateEdgeLabels(def)...)

	// Graph-shape checks are only meaningful once references resolve.
	if len(errs) == 0 {
		errs = append(errs, validateAcyclic(def)...)
		errs = append(errs, validateReachable(def)...)
	}

	return errs
}

// validateReachable flags stages that no dependency or routing path from the
// entry stage can ever enable. An unreachable stage would silently never run.
func validateReachable(def *Definition) []ValidationError {
	entry, ok := def.Entry()
	if !ok {
		return nil
	}
	reached := map[string]bool{entry.ID: true}
	dependents := make(map[string][]string, len(def.Stages))
	for _, s := range def.Stages {
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}
	frontier := []string{entry.ID}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		next := append([]string{}, dependents[id]...)
		for _, e := range def.OutgoingEdges(id) {
			if e.To != End {
				next = append(next, e.To)
			}
		}
		for _, n := range next {
			if !reached[n] {
				reached[n] = true
				frontier = append(frontier, n)
			}
		}
	}
	var errs []ValidationError
	for _, s := range def.Stages {
		if !reached[s.ID] {
			errs = append(errs, ValidationError{Code: ErrUnreachableStage, Stage: s.ID, Message: "stage is unreachable from the entry stage"})
		}
	}
	return errs
}

func validateEntry(def *Definition) []ValidationError {
	incoming := def.incomingTargets()
	var entries []string
	for _, s := range def.Stages {
		if dependsOnlyOnInputs(s) && !incoming[s.ID] {
			entries = append(entries, s.ID)
		}
	}
	switch {
	case len(entries) == 0:
		return []ValidationError{{Code: ErrNoEntryStage, Message: "no entry stage: every stage has dependencies or incoming edges"}}
	case len(entries) > 1:
		return []ValidationError{{
			Code:    ErrMultipleEntries,
			Message: fmt.Sprintf("multiple entry stages: %s", strings.Join(entries, ", ")),
		}}
	}
	return nil
}

func validateReferences(def *Definition, stageSet map[string]bool) []ValidationError {
	var errs []ValidationError
	for _, s := range def.Stages {
		for _, dep := range s.DependsOn {
			if dep == InputsNamespace {
				continue
			}
			if !stageSet[dep] {
				errs = append(errs, ValidationError{
					Code:    ErrUnknownDependency,
					Stage:   s.ID,
					Message: fmt.Sprintf("depends on undefined stage %q", dep),
				})
			}
		}
	}
	if def.Decision != "" && !stageSet[def.Decision] {
		errs = append(errs, ValidationError{
			Code:    ErrUnknownDecision,
			Message: fmt.Sprintf("decision stage %q is not a defined stage", def.Decision),
		})
	}
	for _, e := range def.Edges {
		if !stageSet[e.From] {
			errs = append(errs, ValidationError{
				Code:    ErrUnknownEdgeStage,
				Message: fmt.Sprintf("edge source %q is not a defined stage", e.From),
			})
		}
		if e.To != End && !stageSet[e.To] {
			errs = append(errs, ValidationError{
				Code:    ErrUnknownEdgeStage,
				Message: fmt.Sprintf("edge target %q is not a defined stage", e.To),
			})
		}
	}
	return errs
}

func validateStageContracts(def *Definition) []ValidationError {
	var errs []ValidationError
	for _, s := range def.Stages {
		if s.Runner == nil {
			errs = append(errs, ValidationError{Code: ErrMissingRunner, Stage: s.ID, Message: "stage has no runner"})
		}
		if s.Fallback == nil {
			errs = append(errs, ValidationError{Code: ErrMissingFallback, Stage: s.ID, Message: "stage has no fallback output"})
			continue
		}
		if s.OutputSchema != nil {
			if err := s.OutputSchema.Validate(s.Fallback); err != nil {
				errs = append(errs, ValidationError{
					Code:    ErrFallbackSchema,
					Stage:   s.ID,
					Message: fmt.Sprintf("fallback does not satisfy output schema: %v", err),
				})
			}
		}
	}
	return errs
}

func validateEdgeLabels(def *Definition) []ValidationError {
	var errs []ValidationError
	for _, e := range def.Edges {
		if e.When != nil && e.Label == "" {
			errs = append(errs, ValidationError{
				Code:    ErrUnlabeledBranch,
				Message: fmt.Sprintf("conditional edge %s -> %s has no label", e.From, e.To),
			})
		}
	}
	return errs
}

// validateAcyclic runs a three-color DFS over the union of dependency edges
// and routing edges. Any back edge is a cycle.
func validateAcyclic(def *Definition) []ValidationError {
	adjacent := make(map[string][]string, len(def.Stages))
	for _, s := range def.Stages {
		for _, dep := range s.DependsOn {
			adjacent[dep] = append(adjacent[dep], s.ID)
		}
	}
	for _, e := range def.Edges {
		if e.To != End {
			adjacent[e.From] = append(adjacent[e.From], e.To)
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(def.Stages))

	var cycle []string
	var visit func(id string, path []string) bool
	visit = func(id string, path []string) bool {
		color[id] = gray
		for _, next := range adjacent[id] {
			switch color[next] {
			case gray:
				cycle = append(path, id, next)
				return true
			case white:
				if visit(next, append(path, id)) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, s := range def.Stages {
		if color[s.ID] == white && visit(s.ID, nil) {
			return []ValidationError{{
				Code:    ErrCycleDetected,
				Message: fmt.Sprintf("cycle through stages: %s", strings.Join(cycle, " -> ")),
			}}
		}
	}
	return nil
}
