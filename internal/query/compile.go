package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
)

const (
	DefaultLimit   = 10
	MaxLimit       = 100
	MaxPage        = 1000
	maxSearchRunes = 200
	maxSkills      = 20
)

type Options struct {
	DefaultLimit int
	MaxLimit     int
}

func (o Options) withDefaults() Options {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = MaxLimit
	}
	if o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = o.MaxLimit
	}
	return o
}

// Compile turns listing parameters into a Plan. Parameter names are accepted in
// snake_case and camelCase.
func Compile(params url.Values, opts Options) Plan {
	opts = opts.withDefaults()
	var f Filter

	if v := first(params, "status"); v != "" {
		if s := models.ProjectStatus(strings.ToLower(v)); models.ValidProjectStatus(s) {
			f.Statuses = []models.ProjectStatus{s}
		}
	}
	if v := first(params, "client"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.ClientID = &id
		}
	}
	if v := first(params, "freelancer"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.FreelancerID = &id
		}
	}
	// Public browse: nobody asked for a status or scoped to an owner.
	if f.Statuses == nil && f.ClientID == nil && f.FreelancerID == nil {
		f.Statuses = []models.ProjectStatus{models.ProjectOpen}
	}

	if v := first(params, "category"); v != "" {
		if c := models.Category(strings.ToLower(v)); models.ValidCategory(c) {
			f.Category = &c
		}
	}
	if v := first(params, "experience_level", "experienceLevel"); v != "" {
		if l := models.ExperienceLevel(strings.ToLower(v)); models.ValidExperienceLevel(l) {
			f.ExperienceLevel = &l
		}
	}
	if v := first(params, "project_size", "projectSize"); v != "" {
		if s := models.ProjectSize(strings.ToLower(v)); models.ValidProjectSize(s) {
			f.ProjectSize = &s
		}
	}
	if v := first(params, "timeline", "timeline_duration", "timelineDuration"); v != "" {
		if t := models.TimelineDuration(strings.ToLower(v)); models.ValidTimelineDuration(t) {
			f.TimelineDuration = &t
		}
	}
	f.Location = strings.ToLower(first(params, "location"))
	f.Skills = parseSkills(all(params, "skills"))

	if v := first(params, "budget_type", "budgetType"); v != "" {
		if bt := models.BudgetType(strings.ToLower(v)); models.ValidBudgetType(bt) {
			f.BudgetType = &bt
		}
	}
	f.BudgetMin = parseAmount(first(params, "budget_min", "budgetMin"))
	f.BudgetMax = parseAmount(first(params, "budget_max", "budgetMax"))

	f.RemoteOnly = first(params, "is_remote", "isRemote") == "true"
	f.UrgentOnly = first(params, "is_urgent", "isUrgent") == "true"

	f.Search = normalizeSearch(first(params, "search"))

	plan := Plan{Filter: f, Sort: parseSort(first(params, "sort"))}
	if f.Search != "" {
		plan.Sort = SortRelevance
	}

	plan.Page = parsePositive(first(params, "page"), 1)
	if plan.Page > MaxPage {
		plan.Page = MaxPage
	}
	plan.Limit = parsePositive(first(params, "limit"), opts.DefaultLimit)
	if plan.Limit > opts.MaxLimit {
		plan.Limit = opts.MaxLimit
	}
	plan.Offset = (plan.Page - 1) * plan.Limit
	return plan
}

func first(params url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(params.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

func all(params url.Values, key string) []string {
	out := append([]string{}, params[key]...)
	return append(out, params[key+"[]"]...)
}

func parseSkills(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range raw {
		for _, s := range strings.Split(r, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			if len(out) == maxSkills {
				return out
			}
		}
	}
	return out
}

func parseAmount(v string) *float64 {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

func parsePositive(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func parseSort(v string) Sort {
	switch s := Sort(strings.ToLower(v)); s {
	case SortNewest, SortOldest, SortBudgetHigh, SortBudgetLow, SortMostProposals:
		return s
	default:
		return SortDefault
	}
}

func normalizeSearch(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	if r := []rune(v); len(r) > maxSearchRunes {
		v = string(r[:maxSearchRunes])
	}
	return v
}

// Tokenize lower-cases s and splits it on anything that is not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
