package services

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	"ethics-submission-api/models"
)

func boolPtr(b bool) *bool { return &b }

func verification(approved *bool) models.DocumentVerification {
	return models.DocumentVerification{IsApproved: approved}
}

func TestDeriveStatusRuleAllPending(t *testing.T) {
	cases := []struct {
		name          string
		verifications []models.DocumentVerification
		want          string
	}{
		{
			name: "no verifications",
			want: models.StatusPending,
		},
		{
			name: "all undecided",
			verifications: []models.DocumentVerification{
				verification(nil), verification(nil), verification(nil),
			},
			want: models.StatusPending,
		},
		{
			name: "one rejected",
			verifications: []models.DocumentVerification{
				verification(nil), verification(boolPtr(false)),
			},
			want: models.StatusNeedsRevision,
		},
		{
			name: "one approved still counts as decided",
			verifications: []models.DocumentVerification{
				verification(nil), verification(boolPtr(true)),
			},
			want: models.StatusNeedsRevision,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.verifications, RuleAllPending); got != tc.want {
				t.Fatalf("DeriveStatus = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeriveStatusRuleAllowApproved(t *testing.T) {
	cases := []struct {
		name          string
		verifications []models.DocumentVerification
		want          string
	}{
		{
			name: "no verifications",
			want: models.StatusPending,
		},
		{
			name: "all undecided",
			verifications: []models.DocumentVerification{
				verification(nil), verification(nil),
			},
			want: models.StatusPending,
		},
		{
			name: "approvals pass",
			verifications: []models.DocumentVerification{
				verification(boolPtr(true)), verification(nil), verification(boolPtr(true)),
			},
			want: models.StatusPending,
		},
		{
			name: "single rejection dominates",
			verifications: []models.DocumentVerification{
				verification(boolPtr(true)), verification(boolPtr(false)), verification(nil),
			},
			want: models.StatusNeedsRevision,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.verifications, RuleAllowApproved); got != tc.want {
				t.Fatalf("DeriveStatus = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRulesDivergeOnApprovedOnly(t *testing.T) {
	approvedOnly := []models.DocumentVerification{
		verification(boolPtr(true)), verification(boolPtr(true)),
	}

	if got := DeriveStatus(approvedOnly, RuleAllPending); got != models.StatusNeedsRevision {
		t.Fatalf("RuleAllPending on approved-only set = %q, want %q", got, models.StatusNeedsRevision)
	}
	if got := DeriveStatus(approvedOnly, RuleAllowApproved); got != models.StatusPending {
		t.Fatalf("RuleAllowApproved on approved-only set = %q, want %q", got, models.StatusPending)
	}
}

// A needs_revision submission whose rejections have all been cleared goes
// back to pending: status update, history row, owner notification, and the
// open comments resolve in bulk.
func TestRecomputeTransitionsBackToPending(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `document_verifications`"),
			columns: []string{"verification_id", "document_id", "submission_id", "is_approved"},
			rows: [][]driver.Value{
				{int64(1), int64(10), int64(7), nil},
				{int64(2), int64(11), int64(7), int64(1)},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "status"},
			rows: [][]driver.Value{{
				int64(7), "ER-2026-0007", int64(3), "Study Title", "needs_revision",
			}},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `submissions`"),
			result:  scriptedResult{rowsAffected: 1},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `submission_status_history`"),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `notifications`"),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `submission_comments`"),
			result:  scriptedResult{rowsAffected: 2},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	svc := NewStatusService(db)
	status, err := svc.Recompute(context.Background(), 7, 3, RuleAllowApproved)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if status != models.StatusPending {
		t.Fatalf("status = %q, want %q", status, models.StatusPending)
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unexpected remaining steps: %v", err)
	}
}

// Under the stricter rule no comment resolution happens even when the
// derivation lands on needs_revision with nothing to resolve.
func TestRecomputeNoChangeWritesNothing(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `document_verifications`"),
			columns: []string{"verification_id", "document_id", "submission_id", "is_approved"},
			rows: [][]driver.Value{
				{int64(1), int64(10), int64(7), int64(0)},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "status"},
			rows: [][]driver.Value{{
				int64(7), "ER-2026-0007", int64(3), "Study Title", "needs_revision",
			}},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	svc := NewStatusService(db)
	status, err := svc.Recompute(context.Background(), 7, 3, RuleAllPending)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if status != models.StatusNeedsRevision {
		t.Fatalf("status = %q, want %q", status, models.StatusNeedsRevision)
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unexpected remaining steps: %v", err)
	}
}
