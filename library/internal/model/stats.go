package model

type BookStats struct {
	Total            int     `json:"total" db:"total"`
	Available        int     `json:"available" db:"available"`
	Borrowed         int     `json:"borrowed" db:"borrowed"`
	AvailabilityRate float64 `json:"availabilityRate" db:"-"`
}

type UserStats struct {
	Total    int `json:"total" db:"total"`
	Active   int `json:"active" db:"active"`
	Inactive int `json:"inactive" db:"-"`
}

type LoanStats struct {
	Active      int     `json:"active" db:"active"`
	Overdue     int     `json:"overdue" db:"overdue"`
	ThisMonth   int     `json:"thisMonth" db:"this_month"`
	OverdueRate float64 `json:"overdueRate" db:"-"`
}

type MonthCount struct {
	Month string `json:"month" db:"month"`
	Count int    `json:"count" db:"count"`
}

type CategoryCount struct {
	Name  string `json:"name" db:"name"`
	Count int    `json:"count" db:"count"`
}

type DashboardStats struct {
	Books             BookStats       `json:"books"`
	Users             UserStats       `json:"users"`
	Loans             LoanStats       `json:"loans"`
	LoansPerMonth     []MonthCount    `json:"loansPerMonth"`
	PopularCategories []CategoryCount `json:"popularCategories"`
}

func Rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(int(float64(part)/float64(total)*1000+0.5)) / 10
}
