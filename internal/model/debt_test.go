package model

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDeriveTotals_CountsOnlyConfirmed(t *testing.T) {
	d := Debt{AmountMinor: 10000}
	payments := []Payment{
		{AmountMinor: 3000, Status: PaymentStatusConfirmed},
		{AmountMinor: 2000, Status: PaymentStatusPending},
		{AmountMinor: 1000, Status: PaymentStatusRejected},
		{AmountMinor: 1500, Status: PaymentStatusConfirmed},
	}
	got := DeriveTotals(d, payments)
	if got.PaidMinor != 4500 {
		t.Errorf("paid: got %d, want 4500", got.PaidMinor)
	}
	if got.RemainingMinor != 5500 {
		t.Errorf("remaining: got %d, want 5500", got.RemainingMinor)
	}
	if got.TotalMinor != 10000 {
		t.Errorf("total: got %d, want 10000", got.TotalMinor)
	}
}

func TestDeriveTotals_OverpaymentFloorsAtZero(t *testing.T) {
	d := Debt{AmountMinor: 1000}
	payments := []Payment{{AmountMinor: 1500, Status: PaymentStatusConfirmed}}
	got := DeriveTotals(d, payments)
	if got.RemainingMinor != 0 {
		t.Errorf("remaining: got %d, want 0", got.RemainingMinor)
	}
}

func TestEffectiveStatus(t *testing.T) {
	due := day("2026-03-10")
	cases := []struct {
		name     string
		debt     Debt
		payments []Payment
		now      time.Time
		want     string
	}{
		{
			name: "active before due date",
			debt: Debt{Status: DebtStatusActive, AmountMinor: 1000, DueDate: due},
			now:  day("2026-03-01"),
			want: DebtStatusActive,
		},
		{
			name: "still active on the due day itself",
			debt: Debt{Status: DebtStatusActive, AmountMinor: 1000, DueDate: due},
			now:  time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
			want: DebtStatusActive,
		},
		{
			name: "overdue once the day is over",
			debt: Debt{Status: DebtStatusActive, AmountMinor: 1000, DueDate: due},
			now:  day("2026-03-11"),
			want: DebtStatusOverdue,
		},
		{
			name:     "fully paid past due is not overdue",
			debt:     Debt{Status: DebtStatusActive, AmountMinor: 1000, DueDate: due},
			payments: []Payment{{AmountMinor: 1000, Status: PaymentStatusConfirmed}},
			now:      day("2026-04-01"),
			want:     DebtStatusActive,
		},
		{
			name: "completed stays completed",
			debt: Debt{Status: DebtStatusCompleted, AmountMinor: 1000, DueDate: due},
			now:  day("2026-04-01"),
			want: DebtStatusCompleted,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EffectiveStatus(tc.debt, tc.payments, tc.now); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSettled(t *testing.T) {
	d := Debt{AmountMinor: 2000}
	if Settled(d, []Payment{{AmountMinor: 1999, Status: PaymentStatusConfirmed}}) {
		t.Errorf("one cent short is not settled")
	}
	if !Settled(d, []Payment{
		{AmountMinor: 1000, Status: PaymentStatusConfirmed},
		{AmountMinor: 1000, Status: PaymentStatusConfirmed},
	}) {
		t.Errorf("exact coverage is settled")
	}
	if Settled(d, []Payment{{AmountMinor: 2000, Status: PaymentStatusPending}}) {
		t.Errorf("pending payments never settle a debt")
	}
}

func TestConfirmationExpired(t *testing.T) {
	now := day("2026-03-10")
	c := DebtConfirmation{ExpiresAt: now}
	if !c.Expired(now) {
		t.Errorf("a token expires at its deadline, not after it")
	}
	if c.Expired(now.Add(-time.Second)) {
		t.Errorf("not expired one second before the deadline")
	}
}

func TestProfileMissingFields(t *testing.T) {
	name := "Ana"
	empty := ""
	p := Profile{Name: &name, Email: &empty}
	got := p.MissingFields()
	want := []string{"email", "phone"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
