package controllers

import (
	"encoding/base64"
	"testing"

	"ethics-submission-api/services"
)

func TestResolveSignatureInputVariantPriority(t *testing.T) {
	fileB64 := base64.StdEncoding.EncodeToString([]byte("scan"))

	cases := []struct {
		name string
		req  *signatureRequest
		want services.SignatureKind
	}{
		{"nil request", nil, services.SignatureNone},
		{"empty request", &signatureRequest{}, services.SignatureNone},
		{
			"file wins over everything",
			&signatureRequest{FileBase64: fileB64, Base64: "x", Path: "p.png", URL: "https://x/y.png"},
			services.SignatureNewFile,
		},
		{
			"base64 wins over path and url",
			&signatureRequest{Base64: "x", Path: "p.png", URL: "https://x/y.png"},
			services.SignatureBase64,
		},
		{
			"plain path is a stored object",
			&signatureRequest{Path: "3/9/signatures/r-001-1.png"},
			services.SignatureStoredPath,
		},
		{
			"http path is treated as remote",
			&signatureRequest{Path: "https://cdn.example.org/sig.png"},
			services.SignatureRemoteURL,
		},
		{
			"explicit url is remote",
			&signatureRequest{URL: "https://cdn.example.org/sig.png"},
			services.SignatureRemoteURL,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveSignatureInput(tc.req)
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if got.Kind != tc.want {
				t.Fatalf("kind = %d, want %d", got.Kind, tc.want)
			}
		})
	}
}

func TestResolveSignatureInputDecodesFilePayload(t *testing.T) {
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("scan bytes"))
	got, err := resolveSignatureInput(&signatureRequest{FileBase64: payload})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if string(got.Data) != "scan bytes" {
		t.Fatalf("decoded data = %q", got.Data)
	}
}

func TestResolveSignatureInputRejectsBadBase64(t *testing.T) {
	if _, err := resolveSignatureInput(&signatureRequest{FileBase64: "!!!"}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestResolveSignatureInputHTTPPathKeepsURLValue(t *testing.T) {
	got, err := resolveSignatureInput(&signatureRequest{Path: "http://cdn.example.org/sig.png"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.URL != "http://cdn.example.org/sig.png" {
		t.Fatalf("url = %q", got.URL)
	}
}

func TestDecodeBase64Field(t *testing.T) {
	raw := []byte("payload")
	encoded := base64.StdEncoding.EncodeToString(raw)

	for _, payload := range []string{encoded, "data:application/pdf;base64," + encoded} {
		got, err := decodeBase64Field(payload)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if string(got) != string(raw) {
			t.Fatalf("decoded %q, want %q", got, raw)
		}
	}
}
