package models

// Datasets rendered by the driver, manager and regulator dashboards.
// They are served unchanged; nothing in the service mutates them.

type EarningsPoint struct {
	Day    string  `json:"day" yaml:"day"`
	Amount float64 `json:"earnings" yaml:"earnings"`
}

type RatingPoint struct {
	Month  string  `json:"month" yaml:"month"`
	Rating float64 `json:"rating" yaml:"rating"`
}

type DriverSummary struct {
	TodayEarnings  float64 `json:"today_earnings" yaml:"today_earnings"`
	EarningsTrend  string  `json:"earnings_trend" yaml:"earnings_trend"`
	HoursOnline    float64 `json:"hours_online" yaml:"hours_online"`
	TripsCompleted int     `json:"trips_completed" yaml:"trips_completed"`
	Rating         float64 `json:"rating" yaml:"rating"`
	ReviewCount    int     `json:"review_count" yaml:"review_count"`
}

type Compensation struct {
	BaseFare float64 `json:"base_fare" yaml:"base_fare"`
	Tips     float64 `json:"tips" yaml:"tips"`
	Bonuses  float64 `json:"bonuses" yaml:"bonuses"`
}

func (c Compensation) Total() float64 { return c.BaseFare + c.Tips + c.Bonuses }

type DriverReport struct {
	Summary      DriverSummary   `json:"summary" yaml:"summary"`
	Compensation Compensation    `json:"compensation" yaml:"compensation"`
	Earnings     []EarningsPoint `json:"earnings" yaml:"earnings"`
	Ratings      []RatingPoint   `json:"ratings" yaml:"ratings"`
}

type PerformancePoint struct {
	Time         string  `json:"time" yaml:"time"`
	Rides        int     `json:"rides" yaml:"rides"`
	Satisfaction float64 `json:"satisfaction" yaml:"satisfaction"`
}

type MatchingPoint struct {
	Hour           string  `json:"hour" yaml:"hour"`
	AvgWaitMinutes float64 `json:"avg_wait" yaml:"avg_wait"`
	Matches        int     `json:"matches" yaml:"matches"`
}

type IssueSlice struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
	Color string `json:"color" yaml:"color"`
}

type Issue struct {
	ID          string `json:"id" yaml:"id"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Priority    string `json:"priority" yaml:"priority"`
	Status      string `json:"status" yaml:"status"`
	TimeLabel   string `json:"time" yaml:"time"`
}

type ManagerReport struct {
	Performance  []PerformancePoint `json:"performance" yaml:"performance"`
	Matching     []MatchingPoint    `json:"matching" yaml:"matching"`
	Issues       []IssueSlice       `json:"issue_distribution" yaml:"issue_distribution"`
	RecentIssues []Issue            `json:"recent_issues" yaml:"recent_issues"`
}

type SafetyPoint struct {
	Month     string  `json:"month" yaml:"month"`
	Incidents int     `json:"incidents" yaml:"incidents"`
	Rate      float64 `json:"rate" yaml:"rate"`
}

type EnvironmentPoint struct {
	Month      string `json:"month" yaml:"month"`
	Emissions  int    `json:"emissions" yaml:"emissions"`
	EVAdoption int    `json:"ev_adoption" yaml:"ev_adoption"`
}

type TrafficPoint struct {
	Hour       string `json:"hour" yaml:"hour"`
	Congestion int    `json:"congestion" yaml:"congestion"`
	Rides      int    `json:"rides" yaml:"rides"`
}

type ComplianceItem struct {
	ID         string `json:"id" yaml:"id"`
	Category   string `json:"category" yaml:"category"`
	Status     string `json:"status" yaml:"status"` // compliant, warning
	LastAudit  string `json:"last_audit" yaml:"last_audit"`
	Completion int    `json:"completion" yaml:"completion"` // percent
}

type RegulatorReport struct {
	Safety      []SafetyPoint      `json:"safety" yaml:"safety"`
	Environment []EnvironmentPoint `json:"environment" yaml:"environment"`
	Traffic     []TrafficPoint     `json:"traffic" yaml:"traffic"`
	Compliance  []ComplianceItem   `json:"compliance" yaml:"compliance"`
}
