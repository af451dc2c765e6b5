package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBillingRule_ChargeRoundsUp(t *testing.T) {
	cases := []struct {
		rule     BillingRule
		minutes  int64
		expected int64
	}{
		{BillingRule{RateMilli: 5000}, 1, 5},
		{BillingRule{RateMilli: 1000}, 3, 3},
		{BillingRule{RateMilli: 1500}, 3, 5},
		{BillingRule{RateMilli: 1500}, 2, 3},
		{BillingRule{RateMilli: 250}, 1, 1},
		{BillingRule{RateMilli: 250}, 4, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, tc.rule.Charge(tc.minutes), "rate %d × %d", tc.rule.RateMilli, tc.minutes)
	}
}

func TestBillingRule_MaxMinutesStaysInRange(t *testing.T) {
	r := BillingRule{RateMilli: 5000}
	max := r.MaxMinutes()
	assert.Greater(t, r.Charge(max), int64(0))
	assert.Equal(t, int64(0), BillingRule{}.MaxMinutes())
}
