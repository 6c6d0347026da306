package services

import "github.com/techagentng/imagegallery/models"

// Reconcile applies one like (wantsLike) or dislike click to a post's
// counters given the user's current reaction. Clicking the reaction the user
// already holds changes nothing; clicking the other one moves the user's
// vote across. Counters never go below zero.
func Reconcile(likes, dislikes int, current models.Reaction, wantsLike bool) (int, int, models.Reaction) {
	if !current.Valid() {
		current = models.Reaction{}
	}
	next := models.Reaction{Like: current.Like, Dislike: current.Dislike}

	switch {
	case wantsLike && !current.Like:
		likes++
		if current.Dislike {
			dislikes--
		}
		next = models.Reaction{Like: true}
	case !wantsLike && !current.Dislike:
		dislikes++
		if current.Like {
			likes--
		}
		next = models.Reaction{Dislike: true}
	}
	return clamp(likes), clamp(dislikes), next
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
