package socketio

import (
	"errors"
	"slices"
	"testing"

	"github.com/edumarques81/wavequeue/internal/domain/player"
	"github.com/edumarques81/wavequeue/internal/infra/waveform"
)

func TestNumberArg(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want float64
		ok   bool
	}{
		{"none", nil, 0, false},
		{"bare number", []any{float64(1500)}, 1500, true},
		{"value object", []any{map[string]interface{}{"value": float64(2)}}, 2, true},
		{"object without value", []any{map[string]interface{}{}}, 0, false},
		{"string", []any{"12"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := numberArg(tt.args)
			if got != tt.want || ok != tt.ok {
				t.Errorf("numberArg = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPayloadFields(t *testing.T) {
	m := payload([]any{map[string]interface{}{
		"id": "abc", "index": float64(3), "playNow": true, "empty": "",
	}})

	if id, ok := stringField(m, "id"); !ok || id != "abc" {
		t.Errorf("stringField(id) = %q, %v", id, ok)
	}
	if _, ok := stringField(m, "empty"); ok {
		t.Error("empty strings should be treated as missing")
	}
	if idx, ok := intField(m, "index"); !ok || idx != 3 {
		t.Errorf("intField(index) = %d, %v", idx, ok)
	}
	if !boolField(m, "playNow") || boolField(m, "missing") {
		t.Error("unexpected boolField result")
	}
	if payload([]any{"not an object"}) != nil {
		t.Error("non-object payload should be nil")
	}
}

func TestStringsField(t *testing.T) {
	ids, err := stringsField(map[string]interface{}{"ids": []interface{}{"a", "b"}}, "ids")
	if err != nil || !slices.Equal(ids, []string{"a", "b"}) {
		t.Errorf("got %v, %v", ids, err)
	}

	bad := []map[string]interface{}{
		nil,
		{"ids": "a"},
		{"ids": []interface{}{"a", float64(1)}},
	}
	for _, m := range bad {
		if _, err := stringsField(m, "ids"); !errors.Is(err, errBadPayload) {
			t.Errorf("stringsField(%v): expected errBadPayload, got %v", m, err)
		}
	}
}

func TestGetSystemInfo(t *testing.T) {
	s, _ := newTestServer(t)

	info := s.GetSystemInfo()
	if info.Version.Name != "wavequeue" {
		t.Errorf("unexpected version info %+v", info.Version)
	}
	if info.Library || info.Cache {
		t.Error("expected no library or cache")
	}
	if info.Clients != 0 || info.QueueSize != 0 {
		t.Errorf("unexpected counts %+v", info)
	}
}

func TestWaveformSpikes(t *testing.T) {
	snap := player.Snapshot{Amplitudes: []int{10, 20, 30, 40}}

	tests := []struct {
		name    string
		m       map[string]interface{}
		want    []int
		wantErr bool
	}{
		{"no spikes requested", nil, nil, false},
		{"zero", map[string]interface{}{"spikes": float64(0)}, nil, false},
		{"max by default", map[string]interface{}{"spikes": float64(2)}, []int{40, 80}, false},
		{"min", map[string]interface{}{"spikes": float64(2), "kind": "min"}, []int{20, 60}, false},
		{"bad kind", map[string]interface{}{"spikes": float64(2), "kind": "median"}, nil, true},
		{"too many", map[string]interface{}{"spikes": float64(50_000_000)}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := waveformSpikes(snap, tt.m)
			if tt.wantErr {
				if !errors.Is(err, errBadPayload) {
					t.Fatalf("expected errBadPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestWaveformSpikesLimitAccepted(t *testing.T) {
	got, err := waveformSpikes(player.Snapshot{}, map[string]interface{}{"spikes": float64(waveform.MaxSpikes)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != waveform.MaxSpikes {
		t.Errorf("expected %d placeholder spikes, got %d", waveform.MaxSpikes, len(got))
	}
}
