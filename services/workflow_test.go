package services

import (
	"context"
	"testing"

	"ethics-submission-api/models"
)

func TestRegenerateAllGathersEveryResult(t *testing.T) {
	db, _, cleanup := newScriptedGormDB(t, nil)
	defer cleanup()

	deps := newWorkflowDeps(db, newFakeStore())
	tasks := []regenTask{
		{documentType: models.DocTypeApplicationForm, filePrefix: applicationFormPrefix},
		{documentType: models.DocTypeResearchProtocol, filePrefix: researchProtocolPrefix},
		{documentType: models.DocTypeConsentForm, filePrefix: consentFormPrefix},
	}

	// actor 0 fails each task up front; the batch must still report all
	// three outcomes in task order.
	results := deps.regenerateAll(context.Background(), 0, 1, tasks)

	if len(results) != len(tasks) {
		t.Fatalf("results = %d, want %d", len(results), len(tasks))
	}
	for i, r := range results {
		if r.DocumentType != tasks[i].documentType {
			t.Fatalf("result %d type = %q, want %q", i, r.DocumentType, tasks[i].documentType)
		}
		if r.Success {
			t.Fatalf("result %d unexpectedly succeeded", i)
		}
		if r.Error == "" {
			t.Fatalf("result %d has no error message", i)
		}
	}
}

func TestSignatureRenderURLsPrefersSignedPath(t *testing.T) {
	deps := workflowDeps{store: newFakeStore()}

	researchers := models.ResearcherList{
		{ID: "a", Name: "A", SignaturePath: "1/2/signatures/a-1.png"},
		{ID: "b", Name: "B", SignatureBase64: "cGF5bG9hZA=="},
		{ID: "c", Name: "C"},
	}

	urls := deps.signatureRenderURLs(context.Background(), researchers)

	if urls["a"] != "https://storage.test/signed/1/2/signatures/a-1.png" {
		t.Fatalf("signed url = %q", urls["a"])
	}
	if urls["b"] != "data:image/png;base64,cGF5bG9hZA==" {
		t.Fatalf("fallback url = %q", urls["b"])
	}
	if _, present := urls["c"]; present {
		t.Fatal("researcher without signature got a URL")
	}
}

func TestSignatureDataURLKeepsExistingPrefix(t *testing.T) {
	already := "data:image/jpeg;base64,abc"
	if got := signatureDataURL(already); got != already {
		t.Fatalf("prefixed payload rewrapped: %q", got)
	}
	if got := signatureDataURL("abc"); got != "data:image/png;base64,abc" {
		t.Fatalf("bare payload = %q", got)
	}
}
