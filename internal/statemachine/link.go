package statemachine

import "github.com/netlab-io/controller/internal/models"

var linkLegalTransitions = map[models.LinkActualState][]models.LinkActualState{
	models.LinkUnknown:  {models.LinkPending, models.LinkUp, models.LinkDown},
	models.LinkPending:  {models.LinkCreating, models.LinkUp, models.LinkError},
	models.LinkCreating: {models.LinkUp, models.LinkDown, models.LinkError},
	models.LinkUp:       {models.LinkDown, models.LinkError},
	models.LinkDown:     {models.LinkPending, models.LinkUp, models.LinkError},
	models.LinkError:    {models.LinkPending, models.LinkDown, models.LinkUp},
}

// LinkTransitionAllowed reports whether s2 is a legal destination from s1,
// including the implicit self-transition.
func LinkTransitionAllowed(s1, s2 models.LinkActualState) bool {
	if s1 == s2 {
		return true
	}
	for _, dest := range linkLegalTransitions[s1] {
		if dest == s2 {
			return true
		}
	}
	return false
}
