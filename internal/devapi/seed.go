package devapi

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tsam/console/internal/domain"
)

// Seed fills an empty database with sample records. It is a no-op when any
// designation already exists.
func (a *API) Seed(ctx context.Context) error {
	var n int64
	if err := a.db.WithContext(ctx).Model(&domain.Designation{}).Count(&n).Error; err != nil {
		return fmt.Errorf("devapi: seed: %w", err)
	}
	if n > 0 {
		a.logger.Debug("seed skipped, database not empty")
		return nil
	}

	err := withTx(a.db.WithContext(ctx), func(tx *gorm.DB) error {
		for _, batch := range seedData() {
			if err := tx.Create(batch).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("devapi: seed: %w", err)
	}
	a.logger.Info("embedded api seeded")
	return nil
}

func seedData() []any {
	return []any{
		&[]domain.Designation{
			{Position: "Software Engineer", IsActive: true},
			{Position: "Senior Software Engineer", IsActive: true},
			{Position: "QA Engineer", IsActive: true},
			{Position: "Business Analyst", IsActive: false},
			{Position: "Technical Lead", IsActive: true},
			{Position: "DevOps Engineer", IsActive: true},
		},
		&[]domain.Technology{
			{Name: "Go", Rating: 5},
			{Name: "Java", Rating: 4},
			{Name: "Angular", Rating: 4},
			{Name: "React", Rating: 5},
			{Name: "Python", Rating: 4},
			{Name: "PHP", Rating: 2},
			{Name: "Kotlin", Rating: 3},
		},
		&[]domain.CareerObjective{
			{Objective: "To work in a challenging environment that helps me grow as a software professional."},
			{Objective: "To build reliable backend systems and mentor junior engineers."},
			{Objective: "To apply analytical skills to real business problems."},
		},
		&[]domain.BlogTopic{
			{Title: "Preparing for your first interview", Description: "<p>Research the company and practise common questions.</p>", IsPublished: true},
			{Title: "Writing a resume that stands out", Description: "<p>Keep it short and lead with <strong>impact</strong>.</p>", IsPublished: true},
			{Title: "Choosing your first tech stack", Description: "<p>Draft.</p>"},
		},
		&[]domain.SalaryTrend{
			{Technology: "Go", MinimumExperience: 0, MaximumExperience: 2, MinimumSalary: decimal.NewFromInt(450000), MaximumSalary: decimal.NewFromInt(700000), Year: 2025},
			{Technology: "Go", MinimumExperience: 3, MaximumExperience: 5, MinimumSalary: decimal.NewFromInt(900000), MaximumSalary: decimal.NewFromInt(1600000), Year: 2025},
			{Technology: "Java", MinimumExperience: 0, MaximumExperience: 2, MinimumSalary: decimal.NewFromInt(400000), MaximumSalary: decimal.NewFromInt(650000), Year: 2025},
			{Technology: "React", MinimumExperience: 2, MaximumExperience: 4, MinimumSalary: decimal.NewFromInt(600000), MaximumSalary: decimal.NewFromInt(1100000), Year: 2024},
		},
		&[]domain.CallingReport{
			{CandidateName: "Asha Patil", Contact: "9876543210", CallDate: "2025-06-02", Purpose: "Interview scheduling"},
			{CandidateName: "Rahul Mehta", Contact: "9123456780", CallDate: "2025-06-03", Purpose: "Follow up", Notes: "Call back next week"},
			{CandidateName: "Neha Joshi", Contact: "8899776655", CallDate: "2025-06-05", Purpose: "Offer discussion"},
		},
	}
}
