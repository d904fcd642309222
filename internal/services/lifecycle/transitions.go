package lifecycle

import (
	"slices"
	"strings"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
)

// projectEdges lists every permitted project transition. in-progress is only
// entered through Accept.
var projectEdges = map[models.ProjectStatus][]models.ProjectStatus{
	models.ProjectOpen:       {models.ProjectInProgress, models.ProjectCancelled},
	models.ProjectInProgress: {models.ProjectCompleted, models.ProjectCancelled},
}

var proposalEdges = map[models.ProposalStatus][]models.ProposalStatus{
	models.ProposalPending: {models.ProposalAccepted, models.ProposalRejected, models.ProposalWithdrawn},
}

func CanTransitionProject(from, to models.ProjectStatus) bool {
	return slices.Contains(projectEdges[from], to)
}

func CanTransitionProposal(from, to models.ProposalStatus) bool {
	return slices.Contains(proposalEdges[from], to)
}

// projectSources returns the states from which to can be reached, joined for
// conflict messages, e.g. "open|in-progress".
func projectSources(to models.ProjectStatus) string {
	var out []string
	for _, from := range []models.ProjectStatus{models.ProjectOpen, models.ProjectInProgress, models.ProjectCompleted, models.ProjectCancelled} {
		if CanTransitionProject(from, to) {
			out = append(out, string(from))
		}
	}
	return strings.Join(out, "|")
}

// editableProjectStates are the states in which a client may still edit a project.
var editableProjectStates = []models.ProjectStatus{models.ProjectOpen, models.ProjectInProgress}
