package services

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/localnerve/healthsync/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   RawReading
		want MetricsPatch
	}{
		{
			name: "empty reading",
			in:   RawReading{},
			want: MetricsPatch{},
		},
		{
			name: "walking hours preferred over steps",
			in:   RawReading{WalkingHours: f64(1.25), StepsToday: iptr(12000)},
			want: MetricsPatch{WalkingHours: f64(1.25)},
		},
		{
			name: "steps derive walking hours",
			in:   RawReading{StepsToday: iptr(9000)},
			want: MetricsPatch{WalkingHours: f64(1.5)},
		},
		{
			name: "steps derived hours are rounded",
			in:   RawReading{StepsToday: iptr(10000)},
			want: MetricsPatch{WalkingHours: f64(1.67)},
		},
		{
			name: "cups preferred over intake",
			in:   RawReading{WaterIntakeCups: iptr(7), WaterIntake: iptr(3)},
			want: MetricsPatch{WaterGlasses: iptr(7)},
		},
		{
			name: "intake used without cups",
			in:   RawReading{WaterIntake: iptr(3)},
			want: MetricsPatch{WaterGlasses: iptr(3)},
		},
		{
			name: "sleep and screen pass through, extras dropped",
			in: RawReading{
				LastNightSleep: f64(7.2),
				ScreenTime:     f64(4.5),
				HeartRate:      iptr(72),
				VO2Max:         f64(44),
				StressLevel:    iptr(30),
				CaloriesBurned: iptr(2000),
			},
			want: MetricsPatch{AvgSleepHours: f64(7.2), ScreenTimeHours: f64(4.5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Convert() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConvertProvider(t *testing.T) {
	got := ConvertProvider(ProviderMetrics{Steps: iptr(6000), SleepHours: f64(7.5), AvgHeartRate: iptr(64)})
	want := MetricsPatch{
		WalkingHours:  f64(1.5),
		AvgSleepHours: f64(7.5),
		Steps:         iptr(6000),
		AvgHeartRate:  iptr(64),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ConvertProvider() mismatch (-want +got):\n%s", diff)
	}

	explicit := ConvertProvider(ProviderMetrics{WalkingHours: f64(2), Steps: iptr(4000)})
	assert.Equal(t, 2.0, *explicit.WalkingHours)
}

func TestPatchFieldCountAndValidate(t *testing.T) {
	assert.Equal(t, 0, MetricsPatch{}.FieldCount())
	assert.Equal(t, 3, MetricsPatch{WalkingHours: f64(0), WaterGlasses: iptr(0), Steps: iptr(1)}.FieldCount())

	assert.NoError(t, MetricsPatch{WalkingHours: f64(0)}.Validate())
	assert.ErrorIs(t, MetricsPatch{AvgSleepHours: f64(-1)}.Validate(), types.ErrInvalidInput)
	assert.ErrorIs(t, MetricsPatch{WaterGlasses: iptr(-2)}.Validate(), types.ErrInvalidInput)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := MetricsPatch{ScreenTimeHours: f64(v)}.Validate()
		assert.ErrorIs(t, err, types.ErrInvalidInput, "screenTimeHours %v", v)
		assert.ErrorContains(t, err, "must be a finite number")
	}
}
