package tracker

import (
	"github.com/google/uuid"

	"github.com/plasmazones/plasmazones/internal/layout"
)

// restore snaps rec to its pending assignment when the saved context still
// holds. A pending entry that fails validation is kept for a later window.
func (t *Tracker) restore(rec *Record) bool {
	p, ok := t.pending[rec.StableID]
	if !ok {
		return false
	}
	logger := t.log.With().Str("window", rec.RuntimeID).Str("stable_id", rec.StableID).Logger()

	if !rec.Sticky && p.Desktop > 0 && t.desktopOf(rec) != p.Desktop {
		logger.Debug().Int("saved", p.Desktop).Int("current", t.desktopOf(rec)).Msg("not restoring, desktop differs")
		return false
	}

	desktop := p.Desktop
	if desktop == 0 {
		desktop = t.desktopOf(rec)
	}
	d, err := t.Detector(p.Screen, desktop)
	if err != nil {
		logger.Debug().Err(err).Str("screen", p.Screen).Msg("not restoring")
		return false
	}
	if p.LayoutID != "" && !layout.SameID(d.Layout().ID.String(), p.LayoutID) {
		logger.Debug().Str("saved", p.LayoutID).Str("current", d.Layout().ID.String()).Msg("not restoring, layout changed")
		return false
	}

	ids, ok := p.zones()
	if !ok {
		logger.Warn().Str("zone", p.ZoneID).Msg("dropping pending assignment with invalid zone id")
		delete(t.pending, rec.StableID)
		t.dirty = true
		return false
	}

	prevScreen := rec.Screen
	rec.Screen = p.Screen
	if err := t.snapWith(rec, d, ids); err != nil {
		rec.Screen = prevScreen
		logger.Debug().Err(err).Msg("not restoring")
		return false
	}
	delete(t.pending, rec.StableID)
	logger.Info().Str("zone", p.ZoneID).Str("screen", p.Screen).Msg("restored window to zone")
	return true
}

func (p Pending) zones() ([]uuid.UUID, bool) {
	raw := p.ZoneIDs
	if len(raw) == 0 {
		raw = []string{p.ZoneID}
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := layout.ParseID(s)
		if err != nil {
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}
