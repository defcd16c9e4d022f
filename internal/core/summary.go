package core

// PeriodReport is a populated month with its envelope lines.
type PeriodReport struct {
	Schedule BudgetSchedule `json:"schedule"`
	Budgets  []Budget       `json:"budgets"`
}
