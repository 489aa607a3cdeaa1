package ticket

import "testing"

func TestTicketValidate(t *testing.T) {
	tests := []struct {
		name    string
		ticket  Ticket
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid ticket",
			ticket: Ticket{
				ID:       "T-20260101-000000-00001",
				Title:    "Recurring failure: timeout",
				Kind:     KindSelfImprovement,
				Priority: PriorityHigh,
			},
			wantErr: false,
		},
		{
			name: "missing id",
			ticket: Ticket{
				Title: "Recurring failure: timeout",
				Kind:  KindSelfImprovement,
			},
			wantErr: true,
			errMsg:  "ticket.id: field is required",
		},
		{
			name: "missing title",
			ticket: Ticket{
				ID:   "T-1",
				Kind: KindSelfImprovement,
			},
			wantErr: true,
			errMsg:  "ticket.title: field is required",
		},
		{
			name: "empty kind defaults to self_improvement",
			ticket: Ticket{
				ID:       "T-1",
				Title:    "old ticket without kind",
				Priority: PriorityLow,
			},
			wantErr: false,
		},
		{
			name: "invalid kind",
			ticket: Ticket{
				ID:    "T-1",
				Title: "bad kind",
				Kind:  Kind("bogus"),
			},
			wantErr: true,
			errMsg:  `ticket.kind: invalid value "bogus"`,
		},
		{
			name: "empty priority defaults to medium",
			ticket: Ticket{
				ID:    "T-1",
				Title: "no priority",
				Kind:  KindAction,
			},
			wantErr: false,
		},
		{
			name: "invalid priority",
			ticket: Ticket{
				ID:       "T-1",
				Title:    "bad priority",
				Kind:     KindSelfImprovement,
				Priority: Priority("urgent"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ticket.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if tt.errMsg != "" && err.Error()[:len(tt.errMsg)] != tt.errMsg {
					t.Errorf("Validate() error = %q, want prefix %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	tk := Ticket{ID: "T-1", Title: "legacy"}
	if err := tk.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if tk.Kind != KindSelfImprovement {
		t.Errorf("Kind = %q, want default %q", tk.Kind, KindSelfImprovement)
	}
	if tk.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want default %q", tk.Priority, PriorityMedium)
	}
}

func TestPriorityIsValid(t *testing.T) {
	for _, p := range AllPriorities() {
		if !p.IsValid() {
			t.Errorf("%q should be valid", p)
		}
	}
	if Priority("critical").IsValid() {
		t.Error(`"critical" should not be valid`)
	}
}

func TestKindIsValid(t *testing.T) {
	if !KindSelfImprovement.IsValid() || !KindAction.IsValid() {
		t.Error("declared kinds should be valid")
	}
	if Kind("").IsValid() {
		t.Error("empty kind should not be valid")
	}
}
