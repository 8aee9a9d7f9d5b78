package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		ID:          "abc",
		Kind:        Expense,
		Amount:      Money{Cents: 1500},
		Category:    "Food",
		Description: "groceries",
		OccurredOn:  NewDate(2024, 3, 10),
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{name: "valid", mutate: func(*Transaction) {}},
		{name: "bad kind", mutate: func(tr *Transaction) { tr.Kind = "transfer" }, wantErr: ErrInvalidKind},
		{name: "zero amount", mutate: func(tr *Transaction) { tr.Amount = Money{} }, wantErr: ErrInvalidAmount},
		{name: "negative amount", mutate: func(tr *Transaction) { tr.Amount = Money{Cents: -100} }, wantErr: ErrInvalidAmount},
		{name: "blank description", mutate: func(tr *Transaction) { tr.Description = "   " }, wantErr: ErrEmptyDescription},
		{name: "blank category", mutate: func(tr *Transaction) { tr.Category = "" }, wantErr: ErrEmptyCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := valid
			tt.mutate(&tr)
			err := tr.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("description too long", func(t *testing.T) {
		tr := valid
		tr.Description = strings.Repeat("x", 201)
		if tr.Validate() == nil {
			t.Error("Validate() accepted a 201-char description")
		}
	})
}

func TestUserValidate(t *testing.T) {
	start := time.Now()

	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{
			name: "valid trial user",
			user: User{Email: "alice@example.com", Plan: PlanTrial, TrialStartedAt: &start},
		},
		{
			name: "valid paid user without trial date",
			user: User{Email: "bob@example.com", Plan: PlanPro},
		},
		{
			name:    "trial without start date",
			user:    User{Email: "carol@example.com", Plan: PlanTrial},
			wantErr: true,
		},
		{
			name:    "bad email",
			user:    User{Email: "not-an-email", Plan: PlanPro},
			wantErr: true,
		},
		{
			name:    "bad plan",
			user:    User{Email: "dave@example.com", Plan: "gold"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"alice@example.com", true},
		{"a.b+c@sub.example.org", true},
		{"", false},
		{"no-at-sign", false},
		{"@example.com", false},
		{"alice@", false},
		{"alice@nodot", false},
		{"two@@example.com", false},
		{"spaced name@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateEmail(%q) = %v, want ok=%v", tt.email, err, tt.ok)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestPlanHelpers(t *testing.T) {
	if PlanTrial.Paid() {
		t.Error("trial reported as paid")
	}
	for _, p := range []Plan{PlanEssencial, PlanPro, PlanPremium} {
		if !p.Paid() {
			t.Errorf("%s not reported as paid", p)
		}
	}
	if Plan("gold").Paid() {
		t.Error("unknown plan reported as paid")
	}
}

func TestPlanByID(t *testing.T) {
	offer, ok := PlanByID(PlanPro)
	if !ok || offer.Price.Cents != 1990 {
		t.Errorf("PlanByID(pro) = %+v, %v", offer, ok)
	}
	if _, ok := PlanByID(PlanTrial); ok {
		t.Error("trial should not be in the subscription catalog")
	}
}
