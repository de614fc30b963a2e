package scheduler

import (
	"time"

	"github.com/aimd54/planet-heroes/internal/notify"
	"github.com/aimd54/planet-heroes/internal/service/analytics"
)

// digestPodium is how many students the digest lists.
const digestPodium = 3

// buildDigest transforms a class overview into the webhook digest format.
func buildDigest(o *analytics.Overview, day time.Time) notify.Digest {
	d := notify.Digest{
		Date:          day,
		TotalStudents: o.TotalStudents,
		AverageScore:  o.AverageScore,
		TotalBadges:   o.TotalBadges,
		ActiveToday:   o.ActiveToday,
		RoundsToday:   o.RoundsToday,
	}

	top := o.TopStudents
	if len(top) > digestPodium {
		top = top[:digestPodium]
	}
	for _, s := range top {
		name := s.Name
		if name == "" {
			name = s.Email
		}
		d.Top = append(d.Top, notify.DigestStudent{Name: name, Points: s.TotalPoints, Badges: s.BadgeCount})
	}
	return d
}
