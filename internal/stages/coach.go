package stages

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/scoring"
	"github.com/seedcap/lendflow/internal/workflow"
)

// Recommendation is one actionable item in an improvement plan.
type Recommendation struct {
	Issue          string `json:"issue"`
	Action         string `json:"action"`
	Priority       string `json:"priority"`
	ExpectedImpact string `json:"expectedImpact"`
}

// Resource points the applicant at supporting material.
type Resource struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ImprovementPlan is the coach stage's committed output, produced for
// denied and referred applications.
type ImprovementPlan struct {
	Decision        string           `json:"decision"`
	BusinessName    string           `json:"businessName"`
	CurrentScore    float64          `json:"currentScore"`
	TargetScore     float64          `json:"targetScore"`
	Recommendations []Recommendation `json:"recommendations"`
	Timeline        string           `json:"timeline"`
	Resources       []Resource       `json:"resources"`
	Summary         string           `json:"summary"`
}

var coachSchema = record.MustCompileSchema(`{
	"type": "object",
	"required": ["decision", "businessName", "currentScore", "targetScore",
	             "recommendations", "timeline", "resources", "summary"],
	"properties": {
		"decision":        {"type": "string"},
		"businessName":    {"type": "string"},
		"currentScore":    {"type": "number"},
		"targetScore":     {"type": "number"},
		"recommendations": {"type": "array"},
		"timeline":        {"type": "string"},
		"resources":       {"type": "array"},
		"summary":         {"type": "string"}
	}
}`)

// Coach returns the remediation stage. It turns the risk flags behind a
// DENY or REFER decision into a prioritized improvement plan.
func Coach(targetScore float64) workflow.StageNode {
	return workflow.StageNode{
		ID:           CoachID,
		DependsOn:    []string{ComplianceID},
		OutputSchema: coachSchema,
		Fallback: record.Record{
			"decision":        "UNKNOWN",
			"businessName":    "unknown",
			"currentScore":    0.0,
			"targetScore":     targetScore,
			"recommendations": []any{},
			"timeline":        "",
			"resources":       []any{},
			"summary":         "coaching unavailable for this run",
		},
		Runner: workflow.StageFunc(func(ctx context.Context, rc workflow.RunContext) (record.Record, error) {
			decision, err := rc.Read(ComplianceID)
			if err != nil {
				return nil, err
			}
			var report AuditReport
			if err := readInto(rc, AuditID, &report); err != nil {
				return nil, err
			}
			var app Applicant
			if err := readInto(rc, IntakeID, &app); err != nil {
				return nil, err
			}

			plan := buildPlan(decision.String("category"), app, report, targetScore)

			rc.Append(workflow.TraceEntry{
				Agent:     CoachID,
				Step:      "coached",
				Message:   fmt.Sprintf("improvement plan with %d recommendations", len(plan.Recommendations)),
				Reasoning: fmt.Sprintf("analyzed %d flags for a %s decision", len(report.Flags), plan.Decision),
			})
			return record.FromStruct(plan)
		}),
	}
}

func buildPlan(decision string, app Applicant, report AuditReport, targetScore float64) ImprovementPlan {
	plan := ImprovementPlan{
		Decision:     decision,
		BusinessName: app.BusinessName,
		CurrentScore: report.Score,
		TargetScore:  targetScore,
	}

	has := func(flag string) bool {
		for _, f := range report.Flags {
			if f == flag {
				return true
			}
		}
		return false
	}
	setTimeline := func(t string) {
		if plan.Timeline == "" {
			plan.Timeline = t
		}
	}

	if has(scoring.FlagInsufficientHistory) || has(scoring.FlagNoRevenueData) {
		plan.Recommendations = append(plan.Recommendations, Recommendation{
			Issue:          "Insufficient Revenue History",
			Action:         "Build a stronger transaction history by operating for at least 6-12 months with consistent revenue",
			Priority:       "High",
			ExpectedImpact: "+15-25 points",
		})
		setTimeline("6-12 months")
	}
	if has(scoring.FlagHighVolatility) {
		plan.Recommendations = append(plan.Recommendations, Recommendation{
			Issue:          "High Revenue Volatility",
			Action:         "Stabilize cash flow by diversifying income streams and improving inventory management",
			Priority:       "High",
			ExpectedImpact: "+10-15 points",
		})
		setTimeline("3-6 months")
	}
	if has(scoring.FlagNSF) {
		plan.Recommendations = append(plan.Recommendations, Recommendation{
			Issue:          "NSF (Non-Sufficient Funds) Occurrences",
			Action:         "Maintain minimum buffer balance and set up overdraft alerts to prevent NSF incidents",
			Priority:       "Critical",
			ExpectedImpact: "+10-20 points",
		})
		setTimeline("1-3 months")
	}
	if has(scoring.FlagHighDebtToIncome) {
		plan.Recommendations = append(plan.Recommendations, Recommendation{
			Issue:          "High Debt-to-Income Ratio",
			Action:         "Reduce existing debt obligations or increase revenue to improve debt-to-income ratio below 0.5",
			Priority:       "Medium",
			ExpectedImpact: "+5-10 points",
		})
	}
	if has(scoring.FlagLowCreditScore) || report.Score < 40 {
		plan.Recommendations = append(plan.Recommendations, Recommendation{
			Issue:          "Low Financial Health Score",
			Action:         "Focus on improving credit score, maintaining positive account balances, and avoiding late payments",
			Priority:       "High",
			ExpectedImpact: "+20-30 points",
		})
		setTimeline("6-12 months")
	}
	if len(plan.Recommendations) == 0 {
		if report.Score < 60 {
			plan.Recommendations = append(plan.Recommendations, Recommendation{
				Issue:          "Below Approval Threshold",
				Action:         "Improve overall financial health by increasing revenue, reducing expenses, and maintaining positive cash flow",
				Priority:       "Medium",
				ExpectedImpact: "+15-20 points",
			})
			setTimeline("3-6 months")
		} else {
			plan.Recommendations = append(plan.Recommendations, Recommendation{
				Issue:          "Borderline Approval",
				Action:         "Continue maintaining current financial performance and consider building additional revenue streams",
				Priority:       "Low",
				ExpectedImpact: "+5-10 points",
			})
			setTimeline("1-3 months")
		}
	}

	if plan.Timeline == "" {
		plan.Timeline = "3-6 months"
	}
	plan.Resources = resourcesFor(app.BusinessType)
	plan.Summary = planSummary(decision, plan, report.Score)
	return plan
}

func resourcesFor(businessType string) []Resource {
	resources := []Resource{
		{Name: "Small Business Financial Management Guide", Type: "PDF Guide", URL: "https://example.com/financial-guide"},
		{Name: "Free Business Banking Consultation", Type: "Consultation", URL: "https://example.com/consultation"},
	}
	switch businessType {
	case "grocery", "pharmacy", "retail":
		resources = append(resources, Resource{
			Name: "Inventory Management Best Practices", Type: "Webinar", URL: "https://example.com/inventory-webinar",
		})
	case "clinic", "childcare":
		resources = append(resources, Resource{
			Name: "Service Business Cash Flow Management", Type: "Course", URL: "https://example.com/cashflow-course",
		})
	}
	return resources
}

func planSummary(decision string, plan ImprovementPlan, score float64) string {
	issues := make([]string, 0, 2)
	for _, r := range plan.Recommendations {
		issues = append(issues, r.Issue)
		if len(issues) == 2 {
			break
		}
	}
	joined := strings.Join(issues, ", ")

	if decision == "DENY" {
		return fmt.Sprintf(
			"Your application was denied primarily due to: %s. By following these recommendations over the next %s, you could improve your score from %.0f to approximately %.0f, increasing your chances of approval.",
			joined, plan.Timeline, score, math.Min(100, score+30))
	}
	return fmt.Sprintf(
		"Your application requires manual review. To strengthen your application: %s. Addressing these items within %s will improve your approval odds.",
		joined, plan.Timeline)
}
