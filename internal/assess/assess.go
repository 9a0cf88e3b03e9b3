// Package assess wires the loan-assessment pipeline together: the stage
// graph, its routing rules, and a typed boundary for starting runs and
// reading their outcomes.
package assess

import (
	"context"
	"fmt"

	"github.com/seedcap/lendflow/internal/config"
	"github.com/seedcap/lendflow/internal/engine"
	"github.com/seedcap/lendflow/internal/policy"
	"github.com/seedcap/lendflow/internal/providers"
	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/scoring"
	"github.com/seedcap/lendflow/internal/stages"
	"github.com/seedcap/lendflow/internal/workflow"
)

// DefinitionID names the wired pipeline.
const DefinitionID = "loan-assessment"

// Edge labels, recorded in route trace entries.
const (
	LabelFastTrack    = "fast_track"
	LabelImpactReview = "needs_impact_review"
	LabelCoaching     = "needs_coaching"
	LabelApproved     = "approved"
)

// Deps are the external collaborators the pipeline runs against. The
// Advisor may be nil, which pins every score to its deterministic
// estimate.
type Deps struct {
	Bank      providers.BankProvider
	Community providers.CommunityProvider
	Advisor   scoring.Advisor
}

// Definition builds the assessment workflow: intake fans out to the
// financial and community lookups, audit scores the applicant, low
// scores detour through the impact stage, compliance decides, and
// denied or referred applications end with a coaching plan.
func Definition(cfg *config.Config, deps Deps) *workflow.Definition {
	scorer := scoring.NewHybridScorer(deps.Advisor)
	pol := policy.New(cfg.Policy)

	nodes := []workflow.StageNode{
		stages.Intake(),
		stages.Financial(deps.Bank),
		stages.Community(deps.Community),
		stages.Audit(scorer, cfg.Bands),
		stages.Impact(scorer),
		stages.Compliance(pol),
		stages.Coach(cfg.Policy.ApproveScore),
	}
	for i := range nodes {
		nodes[i].Timeout = cfg.StageTimeout()
	}

	skip := cfg.Routing.ImpactSkipThreshold
	return &workflow.Definition{
		ID:     DefinitionID,
		Stages: nodes,
		Edges: []workflow.Edge{
			{From: stages.IntakeID, To: stages.FinancialID},
			{From: stages.IntakeID, To: stages.CommunityID},
			{From: stages.FinancialID, To: stages.AuditID},
			{From: stages.CommunityID, To: stages.AuditID},
			{
				From: stages.AuditID, To: stages.ComplianceID, Label: LabelFastTrack,
				When: func(v workflow.View) bool { return auditScore(v) >= skip },
			},
			{
				From: stages.AuditID, To: stages.ImpactID, Label: LabelImpactReview,
				When: func(v workflow.View) bool { return auditScore(v) < skip },
			},
			{From: stages.ImpactID, To: stages.ComplianceID},
			{
				From: stages.ComplianceID, To: stages.CoachID, Label: LabelCoaching,
				When: func(v workflow.View) bool {
					c := decisionCategory(v)
					return c == string(policy.Deny) || c == string(policy.Refer)
				},
			},
			{
				From: stages.ComplianceID, To: workflow.End, Label: LabelApproved,
				When: func(v workflow.View) bool { return decisionCategory(v) == string(policy.Approve) },
			},
			{From: stages.CoachID, To: workflow.End},
		},
		Decision:       stages.ComplianceID,
		RequiredInputs: []string{"applicantId", "businessName", "businessType", "zip"},
	}
}

func auditScore(v workflow.View) float64 {
	rec, ok := v.Output(stages.AuditID)
	if !ok {
		return 0
	}
	return rec.Float("score")
}

func decisionCategory(v workflow.View) string {
	rec, ok := v.Output(stages.ComplianceID)
	if !ok {
		return ""
	}
	return rec.String("category")
}

// Report is the typed outcome of one assessment run.
type Report struct {
	RunID    string
	Status   engine.RunStatus
	Decision policy.DecisionRecord

	// Plan is present only when the coach stage ran.
	Plan *stages.ImprovementPlan

	// Result is the full engine payload: stage results, outputs, trace.
	Result *engine.RunResult
}

// Assessor runs assessments against a fixed pipeline definition.
type Assessor struct {
	eng *engine.Engine
}

// New validates and wires the pipeline. The run ID generator is
// injectable so tests and the harness can fix run identity.
func New(cfg *config.Config, deps Deps, runIDs engine.RunIDGenerator, opts ...engine.Option) (*Assessor, error) {
	base := []engine.Option{
		engine.WithStageTimeout(cfg.StageTimeout()),
		engine.WithRunTimeout(cfg.RunTimeout()),
	}
	eng, err := engine.New(Definition(cfg, deps), runIDs, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Assessor{eng: eng}, nil
}

// Run executes one assessment to completion.
func (a *Assessor) Run(ctx context.Context, inputs record.Record) (*Report, error) {
	res, err := a.eng.Execute(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return buildReport(res)
}

func buildReport(res *engine.RunResult) (*Report, error) {
	rep := &Report{RunID: res.RunID, Status: res.Status, Result: res}

	if err := record.ToStruct(res.Decision, &rep.Decision); err != nil {
		return nil, fmt.Errorf("decode decision for run %s: %w", res.RunID, err)
	}
	if planRec, ok := res.Outputs[stages.CoachID]; ok {
		var plan stages.ImprovementPlan
		if err := record.ToStruct(planRec, &plan); err != nil {
			return nil, fmt.Errorf("decode improvement plan for run %s: %w", res.RunID, err)
		}
		rep.Plan = &plan
	}
	return rep, nil
}
