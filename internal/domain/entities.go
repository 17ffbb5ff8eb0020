package domain

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// Designation is a job position offered to talents.
type Designation struct {
	BaseModel
	Position string `gorm:"size:100;not null;uniqueIndex" json:"position" form:"position" validate:"required,max=100,tsam_name"`
	IsActive bool   `json:"isActive" form:"isActive"`
}

// Technology is a language or framework rated by the training team.
type Technology struct {
	BaseModel
	Name   string `gorm:"size:50;not null;uniqueIndex" json:"name" form:"name" validate:"required,max=50"`
	Rating int    `json:"rating" form:"rating" validate:"required,min=1,max=5"`
}

// CareerObjective is a canned career objective statement.
type CareerObjective struct {
	BaseModel
	Objective string `gorm:"size:500;not null" json:"objective" form:"objective" validate:"required,max=500"`
}

// BlogTopic is a blog post authored through the rich-text editor.
type BlogTopic struct {
	BaseModel
	Title       string `gorm:"size:200;not null" json:"title" form:"title" validate:"required,max=200"`
	Description string `gorm:"type:text" json:"description" form:"description" validate:"required,max=20000"`
	BannerURL   string `gorm:"size:500" json:"bannerURL" form:"bannerURL" validate:"omitempty,url,max=500"`
	IsPublished bool   `json:"isPublished" form:"isPublished"`
}

var richTextPolicy = bluemonday.UGCPolicy()

// SanitizeHTML strips markup that is unsafe to render from rich text.
func SanitizeHTML(s string) template.HTML {
	return template.HTML(richTextPolicy.Sanitize(s))
}

// SafeDescription returns the rich-text description with unsafe markup removed.
func (b BlogTopic) SafeDescription() template.HTML {
	return SanitizeHTML(b.Description)
}

// SalaryTrend is the observed salary band for a technology and experience range.
type SalaryTrend struct {
	BaseModel
	Technology        string          `gorm:"size:50;not null" json:"technology" form:"technology" validate:"required,max=50"`
	MinimumExperience int             `json:"minimumExperience" form:"minimumExperience" validate:"gte=0,lte=50"`
	MaximumExperience int             `json:"maximumExperience" form:"maximumExperience" validate:"gte=0,lte=50"`
	MinimumSalary     decimal.Decimal `gorm:"type:decimal(12,2)" json:"minimumSalary" form:"minimumSalary"`
	MaximumSalary     decimal.Decimal `gorm:"type:decimal(12,2)" json:"maximumSalary" form:"maximumSalary"`
	Year              int             `json:"year" form:"year" validate:"required,min=1990,max=2100"`
	BrochureURL       string          `gorm:"size:500" json:"brochureURL" form:"brochureURL" validate:"omitempty,url,max=500"`
}

// CallingReport records a phone call made to a candidate.
type CallingReport struct {
	BaseModel
	CandidateName string `gorm:"size:100;not null" json:"candidateName" form:"candidateName" validate:"required,max=100,tsam_name"`
	Contact       string `gorm:"size:10;not null" json:"contact" form:"contact" validate:"required,tsam_phone"`
	CallDate      string `gorm:"size:10;not null" json:"callDate" form:"callDate" validate:"required,datetime=2006-01-02"`
	Purpose       string `gorm:"size:200" json:"purpose" form:"purpose" validate:"omitempty,max=200"`
	Notes         string `gorm:"size:1000" json:"notes" form:"notes" validate:"omitempty,max=1000"`
	ResumeURL     string `gorm:"size:500" json:"resumeURL" form:"resumeURL" validate:"omitempty,url,max=500"`
}
