// Package stages holds the stage adapters of the loan assessment
// pipeline. Each constructor returns a workflow.StageNode carrying the
// stage's runner, dependencies, output schema and a schema-complete
// fallback record, so a failed or timed-out stage degrades to a safe
// default instead of failing the run.
package stages

import (
	"fmt"

	"github.com/seedcap/lendflow/internal/record"
	"github.com/seedcap/lendflow/internal/scoring"
	"github.com/seedcap/lendflow/internal/workflow"
)

// Stage IDs double as context namespaces.
const (
	IntakeID     = "intake"
	FinancialID  = "financial"
	CommunityID  = "community"
	AuditID      = "audit"
	ImpactID     = "impact"
	ComplianceID = "compliance"
	CoachID      = "coach"
)

// readInto loads a committed namespace into a JSON-tagged struct.
func readInto(rc workflow.RunContext, namespace string, dst any) error {
	rec, err := rc.Read(namespace)
	if err != nil {
		return err
	}
	if err := record.ToStruct(rec, dst); err != nil {
		return fmt.Errorf("namespace %q: %w", namespace, err)
	}
	return nil
}

// features reads the financial namespace back into its typed form.
func features(rc workflow.RunContext) (scoring.FinancialFeatures, error) {
	var f scoring.FinancialFeatures
	err := readInto(rc, FinancialID, &f)
	return f, err
}
