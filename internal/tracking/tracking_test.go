package tracking

import (
	"testing"

	"github.com/SilphSquad/Brock-WhMgr/internal/events"
)

func TestTracker_Observe(t *testing.T) {
	tr := NewTracker[string, GymStatus]()

	mystic := GymStatus{Team: events.TeamMystic}
	valor := GymStatus{Team: events.TeamValor}

	t.Run("first sighting is unchanged", func(t *testing.T) {
		prev, changed := tr.Observe("gym-1", mystic)
		if changed {
			t.Error("first sighting must not report a change")
		}
		if prev != mystic {
			t.Errorf("previous = %v, want seeded value %v", prev, mystic)
		}
	})

	t.Run("repeat of same value is unchanged", func(t *testing.T) {
		if _, changed := tr.Observe("gym-1", mystic); changed {
			t.Error("unchanged value must not report a change")
		}
	})

	t.Run("transition reports change and previous value", func(t *testing.T) {
		prev, changed := tr.Observe("gym-1", valor)
		if !changed {
			t.Error("team takeover must report a change")
		}
		if prev != mystic {
			t.Errorf("previous = %v, want %v", prev, mystic)
		}
	})

	t.Run("battle flag flip is a change", func(t *testing.T) {
		battling := GymStatus{Team: events.TeamValor, InBattle: true}
		if _, changed := tr.Observe("gym-1", battling); !changed {
			t.Error("in_battle flip must report a change")
		}
	})

	t.Run("independent ids do not interfere", func(t *testing.T) {
		if _, changed := tr.Observe("gym-2", valor); changed {
			t.Error("first sighting of a new id must not report a change")
		}
		if tr.Len() != 2 {
			t.Errorf("Len() = %d, want 2", tr.Len())
		}
	})
}

func TestTracker_ObserveWeather(t *testing.T) {
	tr := NewTracker[int64, events.WeatherCondition]()

	if _, changed := tr.Observe(100, events.WeatherClear); changed {
		t.Error("first cell sighting must not report a change")
	}
	prev, changed := tr.Observe(100, events.WeatherRainy)
	if !changed {
		t.Error("condition transition must report a change")
	}
	if prev != events.WeatherClear {
		t.Errorf("previous = %v, want clear", prev)
	}
}
