package domain

// Search filters. A nil pointer or empty slice means the criterion is not set.

type DesignationFilter struct {
	Position *string `form:"position" validate:"omitempty,max=100"`
	IsActive *bool   `form:"isActive"`
}

type TechnologyFilter struct {
	Name   *string `form:"name" validate:"omitempty,max=50"`
	Rating *int    `form:"rating" validate:"omitempty,min=1,max=5"`
}

type CareerObjectiveFilter struct {
	Objective *string `form:"objective" validate:"omitempty,max=500"`
}

type BlogTopicFilter struct {
	Title       *string `form:"title" validate:"omitempty,max=200"`
	IsPublished *bool   `form:"isPublished"`
}

type SalaryTrendFilter struct {
	Technologies      []string `form:"technologies" validate:"omitempty,dive,max=50"`
	MinimumExperience *int     `form:"minimumExperience" validate:"omitempty,gte=0,lte=50"`
	MaximumExperience *int     `form:"maximumExperience" validate:"omitempty,gte=0,lte=50"`
	Year              *int     `form:"year" validate:"omitempty,min=1990,max=2100"`
}

type CallingReportFilter struct {
	CandidateName *string `form:"candidateName" validate:"omitempty,max=100"`
	FromDate      *string `form:"fromDate" validate:"omitempty,datetime=2006-01-02"`
	ToDate        *string `form:"toDate" validate:"omitempty,datetime=2006-01-02"`
}
