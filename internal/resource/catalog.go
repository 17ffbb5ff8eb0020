package resource

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tsam/console/internal/backend"
	"github.com/tsam/console/internal/domain"
	"github.com/tsam/console/internal/session"
)

var Designations = Definition[domain.Designation, domain.DesignationFilter]{
	Name:     "designations",
	Title:    "Designation",
	Plural:   "Designations",
	Endpoint: "designations",
	Filters: []Input{
		{Name: "position", Kind: KindText},
		{Name: "isActive", Label: "Active", Kind: KindBoolean},
	},
	Fields: []Input{
		{Name: "position", Kind: KindText, Required: true},
		{Name: "isActive", Label: "Active", Kind: KindCheckbox},
	},
	Columns: []Column[domain.Designation]{
		{Label: "Position", Value: func(d domain.Designation) string { return d.Position }},
		{Label: "Active", Value: func(d domain.Designation) string { return yesNo(d.IsActive) }},
	},
	Defaults: func() domain.Designation { return domain.Designation{IsActive: true} },
}

var Technologies = Definition[domain.Technology, domain.TechnologyFilter]{
	Name:     "technologies",
	Title:    "Technology",
	Plural:   "Technologies",
	Endpoint: "technologies",
	Filters: []Input{
		{Name: "name", Kind: KindText},
		{Name: "rating", Kind: KindSelect, Options: ratingOptions},
	},
	Fields: []Input{
		{Name: "name", Kind: KindText, Required: true},
		{Name: "rating", Kind: KindSelect, Options: ratingOptions, Required: true},
	},
	Columns: []Column[domain.Technology]{
		{Label: "Name", Value: func(t domain.Technology) string { return t.Name }},
		{Label: "Rating", Value: func(t domain.Technology) string { return strconv.Itoa(t.Rating) }},
	},
}

var CareerObjectives = Definition[domain.CareerObjective, domain.CareerObjectiveFilter]{
	Name:     "career-objectives",
	Title:    "Career Objective",
	Plural:   "Career Objectives",
	Endpoint: "career-objectives",
	Filters: []Input{
		{Name: "objective", Kind: KindText},
	},
	Fields: []Input{
		{Name: "objective", Kind: KindTextArea, Required: true},
	},
	Columns: []Column[domain.CareerObjective]{
		{Label: "Objective", Value: func(c domain.CareerObjective) string { return c.Objective }},
	},
}

var BlogTopics = Definition[domain.BlogTopic, domain.BlogTopicFilter]{
	Name:     "blog-topics",
	Title:    "Blog Topic",
	Plural:   "Blog Topics",
	Endpoint: "blog-topics",
	Filters: []Input{
		{Name: "title", Kind: KindText},
		{Name: "isPublished", Label: "Published", Kind: KindBoolean},
	},
	Fields: []Input{
		{Name: "title", Kind: KindText, Required: true},
		{Name: "description", Kind: KindRichText, Required: true},
		{Name: "bannerURL", Label: "Banner", Kind: KindUpload, Upload: backend.UploadImage},
		{Name: "isPublished", Label: "Published", Kind: KindCheckbox},
	},
	Columns: []Column[domain.BlogTopic]{
		{Label: "Title", Value: func(b domain.BlogTopic) string { return b.Title }},
		{Label: "Published", Value: func(b domain.BlogTopic) string { return yesNo(b.IsPublished) }},
	},
}

var SalaryTrends = Definition[domain.SalaryTrend, domain.SalaryTrendFilter]{
	Name:     "salary-trends",
	Title:    "Salary Trend",
	Plural:   "Salary Trends",
	Endpoint: "salary-trends",
	Filters: []Input{
		{Name: "technologies", Kind: KindMultiSelect, Options: technologyOptions},
		{Name: "minimumExperience", Kind: KindNumber},
		{Name: "maximumExperience", Kind: KindNumber},
		{Name: "year", Kind: KindNumber},
	},
	Fields: []Input{
		{Name: "technology", Kind: KindSelect, Options: technologyOptions, Required: true},
		{Name: "minimumExperience", Kind: KindNumber},
		{Name: "maximumExperience", Kind: KindNumber},
		{Name: "minimumSalary", Kind: KindDecimal, Placeholder: "0.00"},
		{Name: "maximumSalary", Kind: KindDecimal, Placeholder: "0.00"},
		{Name: "year", Kind: KindNumber, Required: true},
		{Name: "brochureURL", Label: "Brochure", Kind: KindUpload, Upload: backend.UploadBrochure},
	},
	Columns: []Column[domain.SalaryTrend]{
		{Label: "Technology", Value: func(s domain.SalaryTrend) string { return s.Technology }},
		{Label: "Experience", Value: func(s domain.SalaryTrend) string {
			return strconv.Itoa(s.MinimumExperience) + " - " + strconv.Itoa(s.MaximumExperience) + " yrs"
		}},
		{Label: "Salary", Value: func(s domain.SalaryTrend) string {
			return money(s.MinimumSalary) + " - " + money(s.MaximumSalary)
		}},
		{Label: "Year", Value: func(s domain.SalaryTrend) string { return strconv.Itoa(s.Year) }},
	},
	Defaults: func() domain.SalaryTrend { return domain.SalaryTrend{Year: time.Now().Year()} },
}

var CallingReports = Definition[domain.CallingReport, domain.CallingReportFilter]{
	Name:     "calling-reports",
	Title:    "Calling Report",
	Plural:   "Calling Reports",
	Endpoint: "calling-reports",
	Filters: []Input{
		{Name: "candidateName", Kind: KindText},
		{Name: "fromDate", Kind: KindDate},
		{Name: "toDate", Kind: KindDate},
	},
	Fields: []Input{
		{Name: "candidateName", Kind: KindText, Required: true},
		{Name: "contact", Kind: KindText, Required: true, Placeholder: "10 digit mobile number"},
		{Name: "callDate", Kind: KindDate, Required: true},
		{Name: "purpose", Kind: KindText},
		{Name: "notes", Kind: KindTextArea},
		{Name: "resumeURL", Label: "Resume", Kind: KindUpload, Upload: backend.UploadResume},
	},
	Columns: []Column[domain.CallingReport]{
		{Label: "Candidate", Value: func(r domain.CallingReport) string { return r.CandidateName }},
		{Label: "Contact", Value: func(r domain.CallingReport) string { return r.Contact }},
		{Label: "Call Date", Value: func(r domain.CallingReport) string { return r.CallDate }},
		{Label: "Purpose", Value: func(r domain.CallingReport) string { return r.Purpose }},
	},
	Defaults: func() domain.CallingReport {
		return domain.CallingReport{CallDate: time.Now().Format(time.DateOnly)}
	},
}

var (
	ratingOptions     = []string{"1", "2", "3", "4", "5"}
	technologyOptions = []string{"Go", "Java", "JavaScript", "Python", "C#", "Angular", "React", "SQL"}
)

// Catalog binds every TSAM screen, in navigation order. Screens share one
// in-memory session store when deps names none.
func Catalog(deps Deps) []Screen {
	if deps.Sessions == nil {
		deps.Sessions = session.NewMemoryStore()
	}
	return []Screen{
		Bind(Designations, deps),
		Bind(Technologies, deps),
		Bind(CareerObjectives, deps),
		Bind(BlogTopics, deps),
		Bind(SalaryTrends, deps),
		Bind(CallingReports, deps),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }
