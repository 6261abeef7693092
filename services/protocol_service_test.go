package services

import (
	"context"
	"database/sql/driver"
	"encoding/base64"
	"regexp"
	"strings"
	"testing"

	"ethics-submission-api/models"
)

func newProtocolServiceForStore(store BlobStore) *ProtocolService {
	return &ProtocolService{workflowDeps: workflowDeps{store: store}}
}

func newProtocolService(t *testing.T, steps []*queryStep, store BlobStore) (*ProtocolService, *scriptedDB, func()) {
	t.Helper()
	db, state, cleanup := newScriptedGormDB(t, steps)
	return &ProtocolService{workflowDeps: newWorkflowDeps(db, store)}, state, cleanup
}

func TestResolveSignaturesNewFileUploadsNormalizedImage(t *testing.T) {
	store := newFakeStore()
	svc := newProtocolServiceForStore(store)

	inputs := []ResearcherInput{{
		ID:   "r-001",
		Name: "Dr. Santos",
		Signature: SignatureInput{
			Kind: SignatureNewFile,
			Data: []byte("signature scan bytes"),
		},
	}}

	researchers, err := svc.resolveSignatures(context.Background(), 5, 11, inputs)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(researchers) != 1 {
		t.Fatalf("researchers = %d, want 1", len(researchers))
	}

	r := researchers[0]
	if !strings.HasPrefix(r.SignaturePath, "5/11/signatures/r-001-") || !strings.HasSuffix(r.SignaturePath, ".png") {
		t.Fatalf("signature path = %q", r.SignaturePath)
	}
	if _, stored := store.objects[r.SignaturePath]; !stored {
		t.Fatal("signature was not uploaded")
	}
}

func TestResolveSignaturesBase64DecodesBeforeUpload(t *testing.T) {
	store := newFakeStore()
	svc := newProtocolServiceForStore(store)

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("canvas bytes"))
	inputs := []ResearcherInput{{
		ID:        "r-002",
		Name:      "Dr. Cruz",
		Signature: SignatureInput{Kind: SignatureBase64, Base64: payload},
	}}

	researchers, err := svc.resolveSignatures(context.Background(), 5, 11, inputs)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if researchers[0].SignaturePath == "" {
		t.Fatal("expected an uploaded signature path")
	}
}

func TestResolveSignaturesStoredPathSkipsUpload(t *testing.T) {
	store := newFakeStore()
	svc := newProtocolServiceForStore(store)

	inputs := []ResearcherInput{{
		ID:        "r-003",
		Name:      "Dr. Lim",
		Signature: SignatureInput{Kind: SignatureStoredPath, Path: "5/11/signatures/r-003-1.png"},
	}}

	researchers, err := svc.resolveSignatures(context.Background(), 5, 11, inputs)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if researchers[0].SignaturePath != "5/11/signatures/r-003-1.png" {
		t.Fatalf("path = %q", researchers[0].SignaturePath)
	}
	if len(store.ops) != 0 {
		t.Fatalf("store ops = %v, want none", store.ops)
	}
}

func TestResolveSignaturesRemoteURLKeepsBase64Companion(t *testing.T) {
	store := newFakeStore()
	svc := newProtocolServiceForStore(store)

	inputs := []ResearcherInput{{
		ID:   "r-004",
		Name: "Dr. Tan",
		Signature: SignatureInput{
			Kind:   SignatureRemoteURL,
			URL:    "https://cdn.example.org/sig.png",
			Base64: "ZmFsbGJhY2s=",
		},
	}}

	researchers, err := svc.resolveSignatures(context.Background(), 5, 11, inputs)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if researchers[0].SignaturePath != "" {
		t.Fatalf("remote URL variant stored a path: %q", researchers[0].SignaturePath)
	}
	if researchers[0].SignatureBase64 != "ZmFsbGJhY2s=" {
		t.Fatalf("base64 companion lost: %q", researchers[0].SignatureBase64)
	}
	if len(store.ops) != 0 {
		t.Fatalf("store ops = %v, want none", store.ops)
	}
}

func TestResolveSignaturesRejectsEmptyNewFile(t *testing.T) {
	svc := newProtocolServiceForStore(newFakeStore())

	inputs := []ResearcherInput{{
		ID:        "r-005",
		Name:      "Dr. Reyes",
		Signature: SignatureInput{Kind: SignatureNewFile},
	}}

	if _, err := svc.resolveSignatures(context.Background(), 5, 11, inputs); err == nil {
		t.Fatal("expected error for empty signature file")
	}
}

func TestExtractAllImagesSkipsAbsentSections(t *testing.T) {
	store := newFakeStore()
	svc := newProtocolServiceForStore(store)

	sections := map[string]string{
		"methodology": "<p>plain</p>",
		"timeline":    inlineImageHTML("png", []byte("gantt chart")),
	}

	rewritten, uploaded, err := svc.extractAllImages(context.Background(), 1, 2, sections)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if len(rewritten) != 2 {
		t.Fatalf("rewritten sections = %d, want the 2 provided", len(rewritten))
	}
	if rewritten["methodology"] != "<p>plain</p>" {
		t.Fatalf("plain section changed: %q", rewritten["methodology"])
	}
	if len(uploaded) != 1 || uploaded[0].Section != "timeline" {
		t.Fatalf("uploaded = %v, want one timeline image", uploaded)
	}
	if _, present := rewritten["introduction"]; present {
		t.Fatal("absent section appeared in output")
	}
}

func TestSanitizeKeyPart(t *testing.T) {
	cases := map[string]string{
		"r-001":          "r-001",
		"maria clara":    "maria-clara",
		"id/with/slash":  "id-with-slash",
		"UPPER_case-9":   "UPPER_case-9",
		"dots.and:marks": "dots-and-marks",
	}
	for in, want := range cases {
		if got := sanitizeKeyPart(in); got != want {
			t.Fatalf("sanitizeKeyPart(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveResearchProtocolRevisionCycle(t *testing.T) {
	steps := []*queryStep{
		// upsertProtocol: existing row
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `research_protocols`"),
			columns: []string{"protocol_id", "submission_id", "title"},
			rows:    [][]driver.Value{{int64(21), int64(7), "Old Title"}},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `research_protocols`"),
			result:  scriptedResult{rowsAffected: 1},
		},
		// submission title sync
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `submissions`"),
			result:  scriptedResult{rowsAffected: 1},
		},
		// loadRenderState
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "status"},
			rows: [][]driver.Value{{
				int64(7), "ER-2026-0007", int64(3), "Updated Protocol", "needs_revision",
			}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `application_forms`"),
			columns: []string{"form_id"},
			rows:    [][]driver.Value{},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `research_protocols`"),
			columns: []string{"protocol_id", "submission_id", "title"},
			rows:    [][]driver.Value{{int64(21), int64(7), "Updated Protocol"}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `consent_forms`"),
			columns: []string{"consent_id"},
			rows:    [][]driver.Value{},
		},
		// research_protocol regeneration against the existing document
		submissionTitleStep(7, "Updated Protocol"),
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `uploaded_documents`"),
			columns: []string{"document_id", "submission_id", "document_type", "file_name", "file_url", "file_size", "revision_count"},
			rows: [][]driver.Value{{
				int64(42), int64(7), "research_protocol", "research-protocol.pdf", "3/7/research-protocol-100.pdf", int64(2000), int64(4),
			}},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `uploaded_documents`"),
			result:  scriptedResult{rowsAffected: 1},
		},
		// revision bookkeeping
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `uploaded_documents` SET `revision_count`=revision_count \\+ 1"),
			result:  scriptedResult{rowsAffected: 1},
		},
		// verification reset: the rejected row goes back to undecided
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `document_verifications`"),
			columns: []string{"verification_id", "document_id", "submission_id", "is_approved"},
			rows: [][]driver.Value{{
				int64(4), int64(42), int64(7), int64(0),
			}},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `document_verifications`"),
			result:  scriptedResult{rowsAffected: 1},
		},
		// recompute: remaining decided verification is an approval
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `document_verifications`"),
			columns: []string{"verification_id", "document_id", "submission_id", "is_approved"},
			rows: [][]driver.Value{
				{int64(4), int64(42), int64(7), nil},
				{int64(5), int64(55), int64(7), int64(1)},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "status"},
			rows: [][]driver.Value{{
				int64(7), "ER-2026-0007", int64(3), "Updated Protocol", "needs_revision",
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
			result:  scriptedResult{rowsAffected: 1},
		},
	}

	store := newFakeStore()
	store.objects["3/7/research-protocol-100.pdf"] = []byte("rejected pdf")
	svc, state, cleanup := newProtocolService(t, steps, store)
	defer cleanup()
	svc.tasks = scriptedTasks(models.DocTypeResearchProtocol)

	input := ProtocolInput{
		Title:    "Updated Protocol",
		Sections: map[string]string{"introduction": "<p>Plain text, no images.</p>"},
		Researchers: []ResearcherInput{{
			ID:   "r-001",
			Name: "Dr. Santos",
			Signature: SignatureInput{
				Kind: SignatureStoredPath,
				Path: "3/7/signatures/r-001-1.png",
			},
		}},
	}
	result := svc.Save(context.Background(), 3, 7, input)
	if !result.Success {
		t.Fatalf("save failed: %s", result.Error)
	}
	if result.Status != models.StatusPending {
		t.Fatalf("status = %q, want %q", result.Status, models.StatusPending)
	}
	if len(result.Documents) != 1 || result.Documents[0].DocumentID != 42 {
		t.Fatalf("documents = %+v, want one result for document 42", result.Documents)
	}

	if len(store.ops) != 2 {
		t.Fatalf("store ops = %v, want upload then remove", store.ops)
	}
	if !strings.HasPrefix(store.ops[0], "upload:3/7/research-protocol-") {
		t.Fatalf("first op = %q, want new protocol upload", store.ops[0])
	}
	if store.ops[1] != "remove:3/7/research-protocol-100.pdf" {
		t.Fatalf("second op = %q, want stale blob removal", store.ops[1])
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("unexpected remaining steps: %v", err)
	}
}

func TestProtocolSectionsCoverTwelveNames(t *testing.T) {
	if len(models.ProtocolSections) != 12 {
		t.Fatalf("sections = %d, want 12", len(models.ProtocolSections))
	}
	seen := map[string]bool{}
	for _, s := range models.ProtocolSections {
		if seen[s] {
			t.Fatalf("duplicate section %q", s)
		}
		seen[s] = true
	}
}
