package vitals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSeriesFor_SortsOutOfOrderInsertions(t *testing.T) {
	list := []Observation{
		obs(SignalSpO2, 93, 3),
		obs(SignalSpO2, 91, 1),
		obs(SignalHR, 88, 0),
		obs(SignalSpO2, 92, 2),
	}
	series := SeriesFor(list, SignalSpO2)
	require.Len(t, series, 3)
	assert.Equal(t, base.Add(1*time.Minute), series[0].At)
	assert.Equal(t, base.Add(2*time.Minute), series[1].At)
	assert.Equal(t, base.Add(3*time.Minute), series[2].At)

	// input untouched
	assert.Equal(t, 93.0, *list[0].Value)
}

func TestSeriesFor_KeepsDuplicatesAndMissingValues(t *testing.T) {
	missing := obs(SignalEtCO2, 0, 1)
	missing.Value = nil
	list := []Observation{
		obs(SignalEtCO2, 40, 1),
		obs(SignalEtCO2, 41, 1),
		missing,
	}
	series := SeriesFor(list, SignalEtCO2)
	require.Len(t, series, 3)
	assert.Equal(t, 40.0, *series[0].Value)
	assert.Equal(t, 41.0, *series[1].Value)
	assert.Nil(t, series[2].Value)
}

func TestSeriesFor_EmptyIsNotNil(t *testing.T) {
	series := SeriesFor(nil, SignalRR)
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestWindow(t *testing.T) {
	series := SeriesFor([]Observation{
		obs(SignalHR, 70, 0),
		obs(SignalHR, 71, 10),
		obs(SignalHR, 72, 20),
	}, SignalHR)
	got := Window(series, base.Add(5*time.Minute), base.Add(20*time.Minute))
	require.Len(t, got, 1)
	assert.Equal(t, 71.0, *got[0].Value)
	assert.Len(t, Window(series, time.Time{}, time.Time{}), 3)
}

func TestProperty_SeriesIsAscending(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		offsets := rapid.SliceOf(rapid.IntRange(-10000, 10000)).Draw(t, "offsets")
		list := make([]Observation, 0, len(offsets))
		for i, off := range offsets {
			list = append(list, obs(SignalPulse, float64(i), off))
		}
		series := SeriesFor(list, SignalPulse)
		if len(series) != len(list) {
			t.Fatalf("got %d points, want %d", len(series), len(list))
		}
		for i := 1; i < len(series); i++ {
			if series[i].At.Before(series[i-1].At) {
				t.Fatalf("series not ascending at %d", i)
			}
		}
	})
}
