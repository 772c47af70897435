package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionPlanFormatPrice(t *testing.T) {
	cases := []struct {
		price int64
		want  string
	}{
		{0, "₹0"},
		{999, "₹999"},
		{1000, "₹1,000"},
		{25500, "₹25,500"},
		{150000, "₹1,50,000"},
		{12345678, "₹1,23,45,678"},
	}
	for _, tc := range cases {
		p := SubscriptionPlan{Price: tc.price}
		assert.Equal(t, tc.want, p.FormatPrice())
	}
}

func TestSubscriptionPlanDurationText(t *testing.T) {
	cases := []struct {
		months int
		want   string
	}{
		{1, "1 month"},
		{6, "6 months"},
		{12, "1 year"},
		{14, "1 year 2 months"},
		{13, "1 year 1 month"},
		{24, "2 years"},
		{30, "2 years 6 months"},
	}
	for _, tc := range cases {
		p := SubscriptionPlan{DurationMonths: tc.months}
		assert.Equal(t, tc.want, p.DurationText())
	}
}
