package models

import "time"

// ProtocolSections lists the twelve narrative sections of a research
// protocol in document order. Keys into ResearchProtocol.SectionHTML.
var ProtocolSections = []string{
	"introduction",
	"background",
	"objectives",
	"methodology",
	"population",
	"sampling",
	"interventions",
	"data_collection",
	"data_analysis",
	"ethical_considerations",
	"timeline",
	"references",
}

// ResearchProtocol represents the research_protocols table. The narrative
// sections hold sanitized HTML; inline images have been uploaded and their
// src rewritten to storage URLs by the step-3 workflow.
type ResearchProtocol struct {
	ProtocolID            int            `gorm:"primaryKey;column:protocol_id" json:"protocol_id"`
	SubmissionID          int            `gorm:"column:submission_id" json:"submission_id"`
	Title                 string         `gorm:"column:title" json:"title"`
	Introduction          string         `gorm:"column:introduction" json:"introduction"`
	Background            string         `gorm:"column:background" json:"background"`
	Objectives            string         `gorm:"column:objectives" json:"objectives"`
	Methodology           string         `gorm:"column:methodology" json:"methodology"`
	Population            string         `gorm:"column:population" json:"population"`
	Sampling              string         `gorm:"column:sampling" json:"sampling"`
	Interventions         string         `gorm:"column:interventions" json:"interventions"`
	DataCollection        string         `gorm:"column:data_collection" json:"data_collection"`
	DataAnalysis          string         `gorm:"column:data_analysis" json:"data_analysis"`
	EthicalConsiderations string         `gorm:"column:ethical_considerations" json:"ethical_considerations"`
	Timeline              string         `gorm:"column:timeline" json:"timeline"`
	References            string         `gorm:"column:references" json:"references"`
	Researchers           ResearcherList `gorm:"column:researchers" json:"researchers"`
	CreatedAt             time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name for ResearchProtocol
func (ResearchProtocol) TableName() string {
	return "research_protocols"
}

// SectionHTML returns the narrative fields keyed by section name, in
// ProtocolSections order.
func (p *ResearchProtocol) SectionHTML() map[string]string {
	return map[string]string{
		"introduction":           p.Introduction,
		"background":             p.Background,
		"objectives":             p.Objectives,
		"methodology":            p.Methodology,
		"population":             p.Population,
		"sampling":               p.Sampling,
		"interventions":          p.Interventions,
		"data_collection":        p.DataCollection,
		"data_analysis":          p.DataAnalysis,
		"ethical_considerations": p.EthicalConsiderations,
		"timeline":               p.Timeline,
		"references":             p.References,
	}
}

// SetSectionHTML writes one named section back onto the struct. Unknown
// names are ignored.
func (p *ResearchProtocol) SetSectionHTML(section, html string) {
	switch section {
	case "introduction":
		p.Introduction = html
	case "background":
		p.Background = html
	case "objectives":
		p.Objectives = html
	case "methodology":
		p.Methodology = html
	case "population":
		p.Population = html
	case "sampling":
		p.Sampling = html
	case "interventions":
		p.Interventions = html
	case "data_collection":
		p.DataCollection = html
	case "data_analysis":
		p.DataAnalysis = html
	case "ethical_considerations":
		p.EthicalConsiderations = html
	case "timeline":
		p.Timeline = html
	case "references":
		p.References = html
	}
}
