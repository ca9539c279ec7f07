package events

import (
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	now := time.Now()
	testCases := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{"valid fetch start", Event{ID: "a", TS: now, Stage: StageFetchStart, Screener: "btst"}, false},
		{"valid session restart without screener", Event{ID: "a", TS: now, Stage: StageSessionRestart}, false},
		{"valid config refresh without screener", Event{ID: "a", TS: now, Stage: StageConfigRefresh}, false},
		{"missing id", Event{TS: now, Stage: StageFetchStart, Screener: "btst"}, true},
		{"missing timestamp", Event{ID: "a", Stage: StageFetchStart, Screener: "btst"}, true},
		{"fetch stage without screener", Event{ID: "a", TS: now, Stage: StageFetchDone}, true},
		{"unknown stage", Event{ID: "a", TS: now, Stage: Stage("WAT")}, true},
		{"negative rows", Event{ID: "a", TS: now, Stage: StageFetchDone, Screener: "btst", Rows: -1}, true},
		{"negative duration", Event{ID: "a", TS: now, Stage: StageFetchDone, Screener: "btst", Dur: -time.Second}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if tc.wantErr && err == nil {
				t.Errorf("Validate() = nil; want error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate() = %v; want nil", err)
			}
		})
	}
}
