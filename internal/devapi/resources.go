package devapi

import "github.com/tsam/console/internal/domain"

func endpoints() []endpoint {
	return []endpoint{
		resource[domain.Designation, domain.DesignationFilter]{
			path:     "designations",
			title:    "Designation",
			sortable: []string{"position", "is_active", "created_at"},
			filter: func(f domain.DesignationFilter) []scope {
				return []scope{contains("position", f.Position), equals("is_active", f.IsActive)}
			},
		},
		resource[domain.Technology, domain.TechnologyFilter]{
			path:     "technologies",
			title:    "Technology",
			sortable: []string{"name", "rating", "created_at"},
			filter: func(f domain.TechnologyFilter) []scope {
				return []scope{contains("name", f.Name), equals("rating", f.Rating)}
			},
		},
		resource[domain.CareerObjective, domain.CareerObjectiveFilter]{
			path:     "career-objectives",
			title:    "Career Objective",
			sortable: []string{"objective", "created_at"},
			filter: func(f domain.CareerObjectiveFilter) []scope {
				return []scope{contains("objective", f.Objective)}
			},
		},
		resource[domain.BlogTopic, domain.BlogTopicFilter]{
			path:     "blog-topics",
			title:    "Blog Topic",
			sortable: []string{"title", "is_published", "created_at"},
			filter: func(f domain.BlogTopicFilter) []scope {
				return []scope{contains("title", f.Title), equals("is_published", f.IsPublished)}
			},
		},
		resource[domain.SalaryTrend, domain.SalaryTrendFilter]{
			path:     "salary-trends",
			title:    "Salary Trend",
			sortable: []string{"technology", "year", "minimum_experience", "created_at"},
			filter: func(f domain.SalaryTrendFilter) []scope {
				return []scope{
					oneOf("technology", f.Technologies),
					atLeast("minimum_experience", f.MinimumExperience),
					atMost("maximum_experience", f.MaximumExperience),
					equals("year", f.Year),
				}
			},
		},
		resource[domain.CallingReport, domain.CallingReportFilter]{
			path:     "calling-reports",
			title:    "Calling Report",
			sortable: []string{"candidate_name", "call_date", "created_at"},
			filter: func(f domain.CallingReportFilter) []scope {
				return []scope{
					contains("candidate_name", f.CandidateName),
					atLeast("call_date", f.FromDate),
					atMost("call_date", f.ToDate),
				}
			},
		},
	}
}
