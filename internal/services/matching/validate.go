package matching

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/config"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
)

const (
	titleMin, titleMax             = 5, 200
	descriptionMin, descriptionMax = 20, 5000
	coverLetterMin, coverLetterMax = 50, 2000
	maxSkills                      = 20
	maxSkillLen                    = 50
	maxLocationLen                 = 120
	maxTimelineLen                 = 120
	maxNoteLen                     = 1000
	maxMilestones                  = 20
)

// ProjectInput is the client-editable part of a project. Owner, status and
// counters are not part of it, so a body carrying them has them dropped.
type ProjectInput struct {
	Title            string                  `json:"title"`
	Description      string                  `json:"description"`
	Category         models.Category         `json:"category"`
	Skills           []string                `json:"skills"`
	Budget           models.Budget           `json:"budget"`
	ExperienceLevel  models.ExperienceLevel  `json:"experience_level"`
	ProjectSize      models.ProjectSize      `json:"project_size"`
	TimelineDuration models.TimelineDuration `json:"timeline_duration"`
	Location         string                  `json:"location"`
	IsRemote         bool                    `json:"is_remote"`
	IsUrgent         bool                    `json:"is_urgent"`
	IsFeatured       bool                    `json:"is_featured"`
}

type ProposalInput struct {
	ProjectID   string             `json:"project_id"`
	BidAmount   float64            `json:"bid_amount"`
	CoverLetter string             `json:"cover_letter"`
	Timeline    string             `json:"timeline"`
	Milestones  []models.Milestone `json:"milestones"`
}

func (in *ProjectInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)

	seen := map[string]bool{}
	skills := make([]string, 0, len(in.Skills))
	for _, sk := range in.Skills {
		sk = strings.TrimSpace(sk)
		key := strings.ToLower(sk)
		if sk == "" || seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, sk)
	}
	in.Skills = skills
	in.Budget = in.Budget.Normalize()
}

func (in *ProjectInput) validate() error {
	in.normalize()
	errs := apperr.FieldErrors{}

	checkLen(errs, "title", in.Title, titleMin, titleMax)
	checkLen(errs, "description", in.Description, descriptionMin, descriptionMax)
	if !models.ValidCategory(in.Category) {
		errs.Add("category", "is not a known category")
	}
	if len(in.Skills) > maxSkills {
		errs.Add("skills", fmt.Sprintf("at most %d skills", maxSkills))
	}
	for _, sk := range in.Skills {
		if utf8.RuneCountInString(sk) > maxSkillLen {
			errs.Add("skills", fmt.Sprintf("%q is longer than %d characters", sk, maxSkillLen))
		}
	}
	in.Budget.Validate(errs)
	if in.ExperienceLevel != "" && !models.ValidExperienceLevel(in.ExperienceLevel) {
		errs.Add("experience_level", "must be entry, intermediate or expert")
	}
	if in.ProjectSize != "" && !models.ValidProjectSize(in.ProjectSize) {
		errs.Add("project_size", "must be small, medium or large")
	}
	if in.TimelineDuration != "" && !models.ValidTimelineDuration(in.TimelineDuration) {
		errs.Add("timeline_duration", "is not a known duration")
	}
	if utf8.RuneCountInString(in.Location) > maxLocationLen {
		errs.Add("location", fmt.Sprintf("at most %d characters", maxLocationLen))
	}

	if !errs.Empty() {
		return apperr.Validation(errs)
	}
	return nil
}

func (in ProjectInput) apply(p *models.Project) {
	p.Title = in.Title
	p.Description = in.Description
	p.Category = in.Category
	p.Skills = make(datatypes.JSONSlice[string], len(in.Skills))
	copy(p.Skills, in.Skills)
	p.Budget = in.Budget
	p.ExperienceLevel = in.ExperienceLevel
	p.ProjectSize = in.ProjectSize
	p.TimelineDuration = in.TimelineDuration
	p.Location = in.Location
	p.IsRemote = in.IsRemote
	p.IsUrgent = in.IsUrgent
	p.IsFeatured = in.IsFeatured
}

// validate checks the proposal body; policy decides whether milestone totals
// may exceed the bid.
func (in *ProposalInput) validate(policy string) error {
	in.CoverLetter = strings.TrimSpace(in.CoverLetter)
	in.Timeline = strings.TrimSpace(in.Timeline)
	errs := apperr.FieldErrors{}

	if !positive(in.BidAmount) {
		errs.Add("bid_amount", "must be a positive number")
	}
	checkLen(errs, "cover_letter", in.CoverLetter, coverLetterMin, coverLetterMax)
	if utf8.RuneCountInString(in.Timeline) > maxTimelineLen {
		errs.Add("timeline", fmt.Sprintf("at most %d characters", maxTimelineLen))
	}
	if len(in.Milestones) > maxMilestones {
		errs.Add("milestones", fmt.Sprintf("at most %d milestones", maxMilestones))
	}
	var total float64
	for i := range in.Milestones {
		m := &in.Milestones[i]
		m.Description = strings.TrimSpace(m.Description)
		if m.Description == "" {
			errs.Add(fmt.Sprintf("milestones[%d].description", i), "is required")
		}
		if !positive(m.Amount) {
			errs.Add(fmt.Sprintf("milestones[%d].amount", i), "must be a positive number")
		}
		total += m.Amount
	}
	if policy == config.MilestonesNotExceed && positive(in.BidAmount) && total > in.BidAmount {
		errs.Add("milestones", "total must not exceed the bid amount")
	}

	if !errs.Empty() {
		return apperr.Validation(errs)
	}
	return nil
}

func (in ProposalInput) apply(p *models.Proposal) {
	p.BidAmount = in.BidAmount
	p.CoverLetter = in.CoverLetter
	p.Timeline = in.Timeline
	p.Milestones = make(datatypes.JSONSlice[models.Milestone], len(in.Milestones))
	copy(p.Milestones, in.Milestones)
}

func checkLen(errs apperr.FieldErrors, field, v string, min, max int) {
	n := utf8.RuneCountInString(v)
	switch {
	case n == 0:
		errs.Add(field, "is required")
	case n < min:
		errs.Add(field, fmt.Sprintf("must be at least %d characters", min))
	case n > max:
		errs.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
