// Package analytics reduces ticket snapshots into dashboard and report figures.
// Every function is pure; callers load the snapshots and pass the clock in.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/sla"
)

// CountByStatus returns a count for every status, zero-filled.
func CountByStatus(tickets []domain.Ticket) map[domain.TicketStatus]int {
	out := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	for _, s := range domain.TicketStatuses {
		out[s] = 0
	}
	for i := range tickets {
		out[tickets[i].Status]++
	}
	return out
}

// CountByPriority returns a count for every priority, zero-filled.
func CountByPriority(tickets []domain.Ticket) map[domain.TicketPriority]int {
	out := make(map[domain.TicketPriority]int, len(domain.TicketPriorities))
	for _, p := range domain.TicketPriorities {
		out[p] = 0
	}
	for i := range tickets {
		out[tickets[i].Priority]++
	}
	return out
}

// CountByCategory returns a count for every category, zero-filled.
func CountByCategory(tickets []domain.Ticket) map[domain.TicketCategory]int {
	out := make(map[domain.TicketCategory]int, len(domain.TicketCategories))
	for _, c := range domain.TicketCategories {
		out[c] = 0
	}
	for i := range tickets {
		out[tickets[i].Category]++
	}
	return out
}

// CountDone counts Resolved and Closed tickets.
func CountDone(tickets []domain.Ticket) int {
	n := 0
	for i := range tickets {
		if tickets[i].Status.IsDone() {
			n++
		}
	}
	return n
}

// CountActive counts Open and In Progress tickets.
func CountActive(tickets []domain.Ticket) int {
	n := 0
	for i := range tickets {
		if tickets[i].Status.IsActive() {
			n++
		}
	}
	return n
}

// ResolutionRate is done/total as a whole percentage, 0 when total is 0.
func ResolutionRate(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(ratio(done, total).Round(0).IntPart())
}

// Percent is part/total*100 rounded to places, with empty as the value for total 0.
func Percent(part, total int, places int32, empty float64) float64 {
	if total <= 0 {
		return empty
	}
	return ratio(part, total).Round(places).InexactFloat64()
}

// WeekOverWeekChange is the relative change in percent rounded to one decimal.
// A rise from zero reports +100 and no movement from zero reports 0.
func WeekOverWeekChange(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return decimal.NewFromInt(int64(current - previous)).
		Div(decimal.NewFromInt(int64(previous))).
		Mul(decimal.NewFromInt(100)).
		Round(1).
		InexactFloat64()
}

// AverageHours converts minute samples into an hour average rounded to one
// decimal. It returns nil when there are no samples.
func AverageHours(samples []int) *float64 {
	if len(samples) == 0 {
		return nil
	}
	sum := int64(0)
	for _, m := range samples {
		sum += int64(m)
	}
	avg := decimal.NewFromInt(sum).
		Div(decimal.NewFromInt(int64(len(samples)))).
		Div(decimal.NewFromInt(60)).
		Round(1).
		InexactFloat64()
	return &avg
}

// AverageMinutes is the rounded mean of samples, 0 when empty.
func AverageMinutes(samples []int) int {
	if len(samples) == 0 {
		return 0
	}
	sum := int64(0)
	for _, m := range samples {
		sum += int64(m)
	}
	return int(decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(samples)))).Round(0).IntPart())
}

// ResponseSamples collects frozen response minutes.
func ResponseSamples(tickets []domain.Ticket) []int {
	var out []int
	for i := range tickets {
		if tickets[i].ResponseTimeMinutes != nil {
			out = append(out, *tickets[i].ResponseTimeMinutes)
		}
	}
	return out
}

// ResolutionSamples collects frozen resolution minutes of done tickets.
func ResolutionSamples(tickets []domain.Ticket) []int {
	var out []int
	for i := range tickets {
		if tickets[i].Status.IsDone() && tickets[i].ResolutionTimeMinutes != nil {
			out = append(out, *tickets[i].ResolutionTimeMinutes)
		}
	}
	return out
}

// CreatedBetween counts tickets created in [from, to).
func CreatedBetween(tickets []domain.Ticket, from, to time.Time) int {
	n := 0
	for i := range tickets {
		c := tickets[i].CreatedAt
		if !c.Before(from) && c.Before(to) {
			n++
		}
	}
	return n
}

// ActiveCreatedBetween counts Open and In Progress tickets created in [from, to).
func ActiveCreatedBetween(tickets []domain.Ticket, from, to time.Time) int {
	n := 0
	for i := range tickets {
		c := tickets[i].CreatedAt
		if tickets[i].Status.IsActive() && !c.Before(from) && c.Before(to) {
			n++
		}
	}
	return n
}

// DayCount is the ticket volume of one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DailyVolume returns the creation counts of the last days calendar days
// ending with now's day, oldest first.
func DailyVolume(tickets []domain.Ticket, now time.Time, days int) []DayCount {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	out := make([]DayCount, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-days+1)
		key := day.Format("2006-01-02")
		out[i] = DayCount{Date: key, Label: day.Format("Mon")}
		index[key] = i
	}
	for i := range tickets {
		key := tickets[i].CreatedAt.In(loc).Format("2006-01-02")
		if pos, ok := index[key]; ok {
			out[pos].Count++
		}
	}
	return out
}

// BreachSummary counts unresolved tickets older than their breach threshold.
type BreachSummary struct {
	Total      int                           `json:"total"`
	ByPriority map[domain.TicketPriority]int `json:"by_priority"`
}

// Breaches builds the breach summary against policy at now.
func Breaches(tickets []domain.Ticket, policy sla.Policy, now time.Time) BreachSummary {
	summary := BreachSummary{ByPriority: make(map[domain.TicketPriority]int, len(domain.TicketPriorities))}
	for _, p := range domain.TicketPriorities {
		summary.ByPriority[p] = 0
	}
	for i := range tickets {
		t := &tickets[i]
		if t.Status.IsDone() {
			continue
		}
		if t.AgeMinutes(now) > policy.BreachThresholdMinutes(t.Priority) {
			summary.ByPriority[t.Priority]++
			summary.Total++
		}
	}
	return summary
}

// AgentStats is the per-assignee performance row.
type AgentStats struct {
	UserID             int64    `json:"user_id"`
	Name               string   `json:"name"`
	Role               string   `json:"role"`
	TotalAssigned      int      `json:"total_assigned"`
	TotalResolved      int      `json:"total_resolved"`
	ResolutionRate     int      `json:"resolution_rate"`
	AvgResponseHours   *float64 `json:"avg_response_hours"`
	AvgResolutionHours *float64 `json:"avg_resolution_hours"`
}

// AgentPerformance produces one row per user, ordered by assigned count
// descending and then by name.
func AgentPerformance(tickets []domain.Ticket, users []domain.User) []AgentStats {
	byUser := make(map[int64][]domain.Ticket, len(users))
	for i := range tickets {
		if id := tickets[i].AssignedUserID; id != nil {
			byUser[*id] = append(byUser[*id], tickets[i])
		}
	}

	out := make([]AgentStats, 0, len(users))
	for _, u := range users {
		assigned := byUser[u.ID]
		done := CountDone(assigned)
		out = append(out, AgentStats{
			UserID:             u.ID,
			Name:               u.Name,
			Role:               string(u.Role),
			TotalAssigned:      len(assigned),
			TotalResolved:      done,
			ResolutionRate:     ResolutionRate(done, len(assigned)),
			AvgResponseHours:   AverageHours(ResponseSamples(assigned)),
			AvgResolutionHours: AverageHours(ResolutionSamples(assigned)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalAssigned != out[j].TotalAssigned {
			return out[i].TotalAssigned > out[j].TotalAssigned
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopAgents keeps the first n rows of an AgentPerformance result.
func TopAgents(stats []AgentStats, n int) []AgentStats {
	if len(stats) <= n {
		return stats
	}
	return stats[:n]
}

// PriorityCompliance is one row of the SLA report.
type PriorityCompliance struct {
	Priority         domain.TicketPriority `json:"priority"`
	ResponseTarget   int                   `json:"response_target_minutes"`
	ResolutionTarget int                   `json:"resolution_target_minutes"`
	Total            int                   `json:"total"`
	Breached         int                   `json:"breached"`
	Compliant        int                   `json:"compliant"`
	ComplianceRate   float64               `json:"compliance_rate"`
}

// Compliance builds the per-priority SLA report. A ticket is breached when its
// resolution metric is breached at now; compliance is 100 for an empty priority.
func Compliance(tickets []domain.Ticket, evaluator *sla.Evaluator, now time.Time) []PriorityCompliance {
	policy := evaluator.Policy()
	rows := make([]PriorityCompliance, 0, len(domain.TicketPriorities))
	for _, p := range domain.TicketPriorities {
		target := policy.Target(p)
		row := PriorityCompliance{Priority: p, ResponseTarget: target.ResponseMinutes, ResolutionTarget: target.ResolutionMinutes}
		for i := range tickets {
			t := &tickets[i]
			if t.Priority != p {
				continue
			}
			row.Total++
			if isBreached(evaluator, t, now) {
				row.Breached++
			}
		}
		row.Compliant = row.Total - row.Breached
		row.ComplianceRate = Percent(row.Compliant, row.Total, 1, 100)
		rows = append(rows, row)
	}
	return rows
}

// CategoryCount is one row of a category breakdown.
type CategoryCount struct {
	Category domain.TicketCategory `json:"category"`
	Count    int                   `json:"count"`
}

// CategoryBreakdown lists categories with at least one ticket, largest first.
func CategoryBreakdown(tickets []domain.Ticket) []CategoryCount {
	counts := CountByCategory(tickets)
	out := make([]CategoryCount, 0, len(counts))
	for _, c := range domain.TicketCategories {
		if counts[c] > 0 {
			out = append(out, CategoryCount{Category: c, Count: counts[c]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// CustomerVolume aggregates tickets raised under one customer name and account.
type CustomerVolume struct {
	CustomerName  string `json:"customer_name"`
	AccountNumber string `json:"account_number"`
	TicketCount   int    `json:"ticket_count"`
	OpenCount     int    `json:"open_count"`
	CriticalCount int    `json:"critical_count"`
}

func groupByCustomer(tickets []domain.Ticket, keep func(*domain.Ticket) bool) []CustomerVolume {
	type key struct{ name, account string }
	index := make(map[key]int)
	var out []CustomerVolume
	for i := range tickets {
		t := &tickets[i]
		if !keep(t) {
			continue
		}
		k := key{t.CustomerName, t.AccountNumber}
		pos, ok := index[k]
		if !ok {
			pos = len(out)
			index[k] = pos
			out = append(out, CustomerVolume{CustomerName: t.CustomerName, AccountNumber: t.AccountNumber})
		}
		out[pos].TicketCount++
		if t.Status.IsActive() {
			out[pos].OpenCount++
		}
		if t.Priority == domain.TicketPriorityCritical {
			out[pos].CriticalCount++
		}
	}
	return out
}

// TopCustomers ranks customers by ticket volume, keeping n rows.
func TopCustomers(tickets []domain.Ticket, n int) []CustomerVolume {
	rows := groupByCustomer(tickets, func(*domain.Ticket) bool { return true })
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TicketCount > rows[j].TicketCount })
	return head(rows, n)
}

// NeedsAttention ranks customers with Open or In Progress tickets by critical
// count and then by open count, keeping n rows. Counts cover active tickets only.
func NeedsAttention(tickets []domain.Ticket, n int) []CustomerVolume {
	rows := groupByCustomer(tickets, func(t *domain.Ticket) bool { return t.Status.IsActive() })
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CriticalCount != rows[j].CriticalCount {
			return rows[i].CriticalCount > rows[j].CriticalCount
		}
		return rows[i].OpenCount > rows[j].OpenCount
	})
	return head(rows, n)
}

// CustomersByStatus counts customers per status, zero-filled.
func CustomersByStatus(customers []domain.Customer) map[domain.CustomerStatus]int {
	out := make(map[domain.CustomerStatus]int, len(domain.CustomerStatuses))
	for _, st := range domain.CustomerStatuses {
		out[st] = 0
	}
	for i := range customers {
		out[customers[i].Status]++
	}
	return out
}

// CustomersCreatedInMonth counts customers created in now's calendar month.
func CustomersCreatedInMonth(customers []domain.Customer, now time.Time) int {
	loc := now.Location()
	n := 0
	for i := range customers {
		c := customers[i].CreatedAt.In(loc)
		if c.Year() == now.Year() && c.Month() == now.Month() {
			n++
		}
	}
	return n
}

func head[T any](rows []T, n int) []T {
	if rows == nil {
		return []T{}
	}
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}

func isBreached(evaluator *sla.Evaluator, t *domain.Ticket, now time.Time) bool {
	if evaluator.Resolution(t, now).Status == sla.StatusBreached {
		return true
	}
	if t.StartedAt == nil {
		return evaluator.IsOverdue(t, now)
	}
	return false
}

func ratio(part, total int) decimal.Decimal {
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total)))
}
