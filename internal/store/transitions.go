package store

import "github.com/Christian-Regnante/SmartQ/internal/models"

var transitionMap = map[string][]string{
	"call_next": {models.StatusWaiting},
	"complete":  {models.StatusServing},
	"skip":      {models.StatusWaiting, models.StatusServing},
}

// ValidTransition reports whether an action may move a ticket out of
// fromStatus. The postgres store consults this before committing a
// status change.
func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
