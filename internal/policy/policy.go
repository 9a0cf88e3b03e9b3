// Package policy turns an audit score and community multiplier into the
// final loan decision. Rules are evaluated in declaration order and are
// monotonic toward denial: once any hard rule denies, no later rule can
// soften the outcome.
package policy

import (
	"fmt"
	"math"
	"strings"

	"github.com/seedcap/lendflow/internal/scoring"
)

// Category is the final decision on an application.
type Category string

const (
	Approve Category = "APPROVE"
	Deny    Category = "DENY"
	Refer   Category = "REFER"
)

// Check identifiers, in evaluation order.
const (
	CheckScoreFloor       = "auditor_score_floor"
	CheckNSFLimit         = "nsf_count_limit"
	CheckDebtToIncome     = "debt_to_income_ceiling"
	CheckApproveThreshold = "adjusted_score_threshold"
	CheckHardRiskFlags    = "hard_risk_flags"
)

// Thresholds are the policy's tunable cutoffs.
type Thresholds struct {
	// ScoreFloor denies any application whose audit score is below it.
	ScoreFloor float64 `json:"scoreFloor"`

	// NSFLimit denies at this many NSF incidents or more.
	NSFLimit int `json:"nsfLimit"`

	// DebtToIncomeCeil denies above this outflow/inflow ratio.
	DebtToIncomeCeil float64 `json:"debtToIncomeCeil"`

	// ApproveScore auto-approves at or above this adjusted score, absent
	// hard risk flags.
	ApproveScore float64 `json:"approveScore"`
}

// DefaultThresholds returns the standard policy cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ScoreFloor:       40,
		NSFLimit:         2,
		DebtToIncomeCeil: 0.60,
		ApproveScore:     75,
	}
}

// PolicyCheck is one audited rule evaluation. Every decision carries the
// full ordered list, passed and failed alike, so reviewers can see what
// was checked, not only what fired.
type PolicyCheck struct {
	Check     string  `json:"check"`
	Threshold float64 `json:"threshold"`
	Value     float64 `json:"value"`
	Passed    bool    `json:"passed"`
	Reason    string  `json:"reason,omitempty"`
}

// Explain reconstructs how the decision was reached.
type Explain struct {
	BaselineScore       float64       `json:"baselineScore"`
	CommunityMultiplier float64       `json:"communityMultiplier"`
	AdjustedScore       float64       `json:"adjustedScore"`
	Checks              []PolicyCheck `json:"policyChecks"`
	DecisionPath        string        `json:"decisionPath"`
}

// DecisionRecord is the terminal output of an assessment run.
type DecisionRecord struct {
	Category      Category   `json:"category"`
	AdjustedScore float64    `json:"adjustedScore"`
	Rationale     string     `json:"rationale"`
	LoanTerms     *LoanTerms `json:"loanTerms,omitempty"`
	Explain       Explain    `json:"explain"`
}

// Input is everything the policy decides from.
type Input struct {
	AuditScore float64
	Multiplier float64 // 1.0 when the impact stage did not run
	Flags      []string
	Features   scoring.FinancialFeatures

	// ImpactRan records whether the impact stage contributed the
	// multiplier, for the decision path in the explain block.
	ImpactRan bool
}

// BusinessRulePolicy applies the ordered rule set.
type BusinessRulePolicy struct {
	t Thresholds
}

// New creates a policy with the given thresholds.
func New(t Thresholds) *BusinessRulePolicy {
	return &BusinessRulePolicy{t: t}
}

// Decide evaluates the rules against an input and produces the decision.
//
// Rule order: score floor, NSF limit, debt-to-income ceiling (each a
// hard denial), then the approval threshold. Monotonicity holds by
// construction: denial rules are evaluated first and their verdict is
// final; the approval rule can only choose between APPROVE and REFER.
func (p *BusinessRulePolicy) Decide(in Input) DecisionRecord {
	multiplier := in.Multiplier
	if multiplier == 0 {
		multiplier = 1.0
	}
	adjusted := round2(in.AuditScore * multiplier)

	var checks []PolicyCheck
	var denyReasons []string

	addCheck := func(name string, threshold, value float64, passed bool, reason string) {
		c := PolicyCheck{Check: name, Threshold: threshold, Value: value, Passed: passed}
		if !passed {
			c.Reason = reason
			denyReasons = append(denyReasons, reason)
		}
		checks = append(checks, c)
	}

	addCheck(CheckScoreFloor, p.t.ScoreFloor, in.AuditScore,
		in.AuditScore >= p.t.ScoreFloor,
		fmt.Sprintf("audit score %.0f below minimum threshold of %.0f", in.AuditScore, p.t.ScoreFloor))

	addCheck(CheckNSFLimit, float64(p.t.NSFLimit), float64(in.Features.NSFCount),
		in.Features.NSFCount < p.t.NSFLimit,
		fmt.Sprintf("NSF count %d at or above maximum allowed (%d)", in.Features.NSFCount, p.t.NSFLimit))

	addCheck(CheckDebtToIncome, p.t.DebtToIncomeCeil, in.Features.DebtToIncome,
		in.Features.DebtToIncome <= p.t.DebtToIncomeCeil,
		fmt.Sprintf("debt-to-income %.2f above ceiling of %.2f", in.Features.DebtToIncome, p.t.DebtToIncomeCeil))

	denied := len(denyReasons) > 0

	explain := Explain{
		BaselineScore:       in.AuditScore,
		CommunityMultiplier: multiplier,
		AdjustedScore:       adjusted,
		DecisionPath:        decisionPath(in.ImpactRan),
	}

	if denied {
		explain.Checks = checks
		return DecisionRecord{
			Category:      Deny,
			AdjustedScore: adjusted,
			Rationale: fmt.Sprintf(
				"Application denied due to: %s. Adjusted score: %.1f (audit: %.0f, multiplier: %.2fx).",
				strings.Join(denyReasons, ", "), adjusted, in.AuditScore, multiplier,
			),
			Explain: explain,
		}
	}

	hardRisk := scoring.HasHardRiskFlag(in.Flags)
	approvable := adjusted >= p.t.ApproveScore

	checks = append(checks, PolicyCheck{
		Check:     CheckApproveThreshold,
		Threshold: p.t.ApproveScore,
		Value:     adjusted,
		Passed:    approvable,
		Reason:    approveReason(approvable, adjusted, p.t.ApproveScore),
	})
	checks = append(checks, PolicyCheck{
		Check:  CheckHardRiskFlags,
		Value:  boolToFloat(hardRisk),
		Passed: !hardRisk,
		Reason: hardRiskReason(hardRisk, in.Flags),
	})
	explain.Checks = checks

	if approvable && !hardRisk {
		return DecisionRecord{
			Category:      Approve,
			AdjustedScore: adjusted,
			Rationale: fmt.Sprintf(
				"Application approved. Adjusted score: %.1f (audit: %.0f, community multiplier: %.2fx). Meets approval threshold of %.0f.",
				adjusted, in.AuditScore, multiplier, p.t.ApproveScore,
			),
			LoanTerms: TermsFor(adjusted, in.Features.AvgMonthlyRevenue),
			Explain:   explain,
		}
	}

	return DecisionRecord{
		Category:      Refer,
		AdjustedScore: adjusted,
		Rationale: fmt.Sprintf(
			"Application requires manual review. Adjusted score: %.1f (audit: %.0f, community multiplier: %.2fx). Below auto-approval threshold of %.0f but meets minimum criteria.",
			adjusted, in.AuditScore, multiplier, p.t.ApproveScore,
		),
		Explain: explain,
	}
}

func decisionPath(impactRan bool) string {
	if impactRan {
		return "audit->impact->compliance"
	}
	return "audit->compliance"
}

func approveReason(passed bool, adjusted, threshold float64) string {
	if passed {
		return fmt.Sprintf("adjusted score %.1f meets approval threshold", adjusted)
	}
	return fmt.Sprintf("adjusted score %.1f below approval threshold of %.0f", adjusted, threshold)
}

func hardRiskReason(hardRisk bool, flags []string) string {
	if !hardRisk {
		return ""
	}
	return fmt.Sprintf("hard risk flags present: %s", strings.Join(flags, ", "))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
