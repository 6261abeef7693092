package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"ethics-submission-api/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// RenderResult is the envelope every document renderer returns. PDFData is
// base64; callers must not touch storage when Success is false.
type RenderResult struct {
	Success bool   `json:"success"`
	PDFData string `json:"pdfData,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RenderFunc renders one document type to PDF. The submission title is
// injected by the regeneration service before the call.
type RenderFunc func(ctx context.Context, title string) RenderResult

func renderFailure(format string, args ...interface{}) RenderResult {
	return RenderResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// percentEncodeForDataURL encodes a string for use in a data URL.
// Unlike url.QueryEscape, spaces become %20 rather than +.
func percentEncodeForDataURL(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == '~':
			result.WriteRune(r)
		case r == ' ':
			result.WriteString("%20")
		default:
			for _, b := range []byte(string(r)) {
				result.WriteString(fmt.Sprintf("%%%02X", b))
			}
		}
	}
	return result.String()
}

// exportPDF converts HTML to PDF using headless Chrome.
func exportPDF(parent context.Context, html string) ([]byte, error) {
	if _, err := exec.LookPath("chromium-browser"); err != nil {
		if _, fallbackErr := exec.LookPath("chromium"); fallbackErr != nil {
			return nil, fmt.Errorf("chromium not installed")
		}
	}

	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)

	var pdfData []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27). // A4
				WithPaperHeight(11.69).
				WithMarginTop(0.75).
				WithMarginBottom(0.75).
				WithMarginLeft(0.75).
				WithMarginRight(0.75).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}

	return pdfData, nil
}

func renderHTML(ctx context.Context, html string) RenderResult {
	pdf, err := exportPDF(ctx, html)
	if err != nil {
		return renderFailure("pdf rendering failed: %v", err)
	}
	return RenderResult{
		Success: true,
		PDFData: base64.StdEncoding.EncodeToString(pdf),
	}
}

// ApplicationFormRenderer returns a RenderFunc for the application form of
// the given submission state.
func ApplicationFormRenderer(form *models.ApplicationForm, submission *models.Submission) RenderFunc {
	return func(ctx context.Context, title string) RenderResult {
		html, err := buildApplicationFormHTML(title, form, submission)
		if err != nil {
			return renderFailure("application form template failed: %v", err)
		}
		return renderHTML(ctx, html)
	}
}

// ResearchProtocolRenderer returns a RenderFunc for the research protocol.
// signatureURLs maps researcher id to a resolvable image URL (signed URL or
// base64 data URL fallback).
func ResearchProtocolRenderer(protocol *models.ResearchProtocol, signatureURLs map[string]string) RenderFunc {
	return func(ctx context.Context, title string) RenderResult {
		html, err := buildResearchProtocolHTML(title, protocol, signatureURLs)
		if err != nil {
			return renderFailure("research protocol template failed: %v", err)
		}
		return renderHTML(ctx, html)
	}
}

// ConsentFormRenderer returns a RenderFunc for the consent form.
func ConsentFormRenderer(consent *models.ConsentForm) RenderFunc {
	return func(ctx context.Context, title string) RenderResult {
		html, err := buildConsentFormHTML(title, consent)
		if err != nil {
			return renderFailure("consent form template failed: %v", err)
		}
		return renderHTML(ctx, html)
	}
}
