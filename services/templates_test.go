package services

import (
	"strings"
	"testing"

	"ethics-submission-api/models"
)

func TestBuildApplicationFormHTML(t *testing.T) {
	form := &models.ApplicationForm{
		ResearcherName: "Dr. Maria Santos",
		Institution:    "College of Public Health",
		ContactInfo: models.ContactInfo{
			Email: "santos@example.edu",
			Phone: "+63-900-111-2222",
		},
	}
	submission := &models.Submission{
		SubmissionNumber: "ER-2026-0042",
		CoAuthors:        models.StringList{"J. Cruz", "L. Tan"},
	}

	html, err := buildApplicationFormHTML("Community Health Survey", form, submission)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	for _, want := range []string{
		"Community Health Survey",
		"Dr. Maria Santos",
		"College of Public Health",
		"ER-2026-0042",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered HTML missing %q", want)
		}
	}
}

func TestBuildResearchProtocolHTMLOrdersSectionsAndSignatures(t *testing.T) {
	protocol := &models.ResearchProtocol{
		Researchers: models.ResearcherList{
			{ID: "r1", Name: "Dr. Santos"},
			{ID: "r2", Name: "Dr. Cruz"},
		},
	}
	protocol.SetSectionHTML("introduction", "<p>the intro</p>")
	protocol.SetSectionHTML("timeline", "<p>the gantt</p>")

	urls := map[string]string{"r1": "https://storage.test/signed/sig-r1.png"}

	html, err := buildResearchProtocolHTML("Protocol Title", protocol, urls)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	intro := strings.Index(html, "the intro")
	timeline := strings.Index(html, "the gantt")
	if intro < 0 || timeline < 0 || intro > timeline {
		t.Fatalf("sections missing or out of order: intro=%d timeline=%d", intro, timeline)
	}

	// Rich text must come through unescaped.
	if strings.Contains(html, "&lt;p&gt;the intro") {
		t.Fatal("section HTML was escaped")
	}

	if !strings.Contains(html, "https://storage.test/signed/sig-r1.png") {
		t.Fatal("signature URL missing for r1")
	}
	if !strings.Contains(html, "Dr. Cruz") {
		t.Fatal("researcher without signature dropped from the block")
	}
}

func TestBuildConsentFormHTMLSortsLanguages(t *testing.T) {
	consent := &models.ConsentForm{
		ConsentType: models.ConsentTypeBoth,
		AdultConsent: models.ConsentSection{
			"fil": {Language: "fil", Introduction: "panimula"},
			"en":  {Language: "en", Introduction: "introduction text"},
		},
		MinorAssent: models.ConsentSection{
			"en": {Language: "en", Introduction: "assent intro"},
		},
	}

	html, err := buildConsentFormHTML("Consent Title", consent)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	en := strings.Index(html, "introduction text")
	fil := strings.Index(html, "panimula")
	assent := strings.Index(html, "assent intro")
	if en < 0 || fil < 0 || assent < 0 {
		t.Fatal("narrative text missing from output")
	}
	if en > fil {
		t.Fatal("languages not sorted within the adult section")
	}
	if fil > assent {
		t.Fatal("minor assent rendered before adult consent")
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	cases := map[string]string{
		"plain-text_1.2~":  "plain-text_1.2~",
		"a b":              "a%20b",
		"<p>&amp;</p>":     "%3Cp%3E%26amp%3B%3C%2Fp%3E",
		"ñ":                "%C3%B1",
	}
	for in, want := range cases {
		if got := percentEncodeForDataURL(in); got != want {
			t.Fatalf("percentEncodeForDataURL(%q) = %q, want %q", in, got, want)
		}
	}
}
