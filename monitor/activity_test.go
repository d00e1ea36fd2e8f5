// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/onec-tools/zbx1c/rac"
)

func TestClassifier_IsActive(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		cfg     ClassifierConfig
		session rac.Session
		want    bool
	}{
		"recent activity alone is sufficient": {
			session: rac.Session{
				AppID:        rac.AppThinClient,
				LastActiveAt: now.Add(-time.Minute),
				Hibernating:  true,
			},
			want: true,
		},
		"stale timestamp with calls counts": {
			session: rac.Session{
				AppID:         rac.AppThinClient,
				LastActiveAt:  now.Add(-time.Hour),
				CallsLast5Min: 2,
			},
			want: true,
		},
		"stale timestamp with traffic counts": {
			session: rac.Session{
				AppID:         rac.AppThinClient,
				LastActiveAt:  now.Add(-time.Hour),
				BytesLast5Min: 512,
			},
			want: true,
		},
		"stale and idle": {
			session: rac.Session{
				AppID:        rac.AppThinClient,
				LastActiveAt: now.Add(-time.Hour),
			},
			want: false,
		},
		"hibernating blocks the traffic fallback": {
			session: rac.Session{
				AppID:         rac.AppThinClient,
				LastActiveAt:  now.Add(-time.Hour),
				Hibernating:   true,
				CallsLast5Min: 10,
				BytesLast5Min: 4096,
			},
			want: false,
		},
		"designer gets a longer recency window": {
			session: rac.Session{
				AppID:        rac.AppDesigner,
				LastActiveAt: now.Add(-8 * time.Minute),
			},
			want: true,
		},
		"thin client is stale at eight minutes": {
			session: rac.Session{
				AppID:        rac.AppThinClient,
				LastActiveAt: now.Add(-8 * time.Minute),
			},
			want: false,
		},
		"job scheduler is always active": {
			session: rac.Session{
				AppID:       rac.AppJobScheduler,
				Hibernating: true,
			},
			want: true,
		},
		"zero timestamp is never recent": {
			session: rac.Session{
				AppID: rac.AppThinClient,
			},
			want: false,
		},
		"future timestamp is bad data, not recent": {
			session: rac.Session{
				AppID:        rac.AppThinClient,
				LastActiveAt: now.Add(time.Hour),
			},
			want: false,
		},
		"recency policy ignores traffic": {
			cfg: ClassifierConfig{Policy: PolicyRecency},
			session: rac.Session{
				AppID:         rac.AppThinClient,
				LastActiveAt:  now.Add(-time.Hour),
				CallsLast5Min: 100,
			},
			want: false,
		},
		"traffic policy ignores recency": {
			cfg: ClassifierConfig{Policy: PolicyTraffic},
			session: rac.Session{
				AppID:        rac.AppThinClient,
				LastActiveAt: now.Add(-time.Second),
			},
			want: false,
		},
		"traffic policy counts awake session with calls": {
			cfg: ClassifierConfig{Policy: PolicyTraffic},
			session: rac.Session{
				AppID:         rac.AppThinClient,
				CallsLast5Min: 1,
			},
			want: true,
		},
		"raised call floor": {
			cfg: ClassifierConfig{MinCalls: 5, MinBytes: 1 << 20},
			session: rac.Session{
				AppID:         rac.AppThinClient,
				LastActiveAt:  now.Add(-time.Hour),
				CallsLast5Min: 3,
				BytesLast5Min: 1024,
			},
			want: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c := NewClassifier(test.cfg)
			assert.Equal(t, test.want, c.IsActive(test.session, now))
		})
	}
}

func TestClassifier_ThresholdBoundaryIsInclusive(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	c := NewClassifier(ClassifierConfig{Policy: PolicyRecency})

	exactlyAtThreshold := rac.Session{
		AppID:        rac.AppThinClient,
		LastActiveAt: now.Add(-5 * time.Minute),
	}
	justBeyond := rac.Session{
		AppID:        rac.AppThinClient,
		LastActiveAt: now.Add(-5*time.Minute - time.Second),
	}

	assert.True(t, c.IsActive(exactlyAtThreshold, now))
	assert.False(t, c.IsActive(justBeyond, now))
}

func TestActivityPolicy_IsValid(t *testing.T) {
	assert.True(t, PolicyLayered.IsValid())
	assert.True(t, PolicyTraffic.IsValid())
	assert.True(t, PolicyRecency.IsValid())
	assert.False(t, ActivityPolicy("").IsValid())
	assert.False(t, ActivityPolicy("bogus").IsValid())
}
