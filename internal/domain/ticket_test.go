package domain

import (
	"testing"
)

func TestFormatTicketCode(t *testing.T) {
	cases := map[int64]string{
		1:     "TK-0001",
		42:    "TK-0042",
		9999:  "TK-9999",
		12345: "TK-12345",
	}
	for id, want := range cases {
		if got := FormatTicketCode(id); got != want {
			t.Errorf("FormatTicketCode(%d) = %q, want %q", id, got, want)
		}
	}
	tk := &Ticket{ID: 7}
	if got := tk.Code(); got != "TK-0007" {
		t.Errorf("Code() = %q, want TK-0007", got)
	}
}

func TestTicketPatchIsEmpty(t *testing.T) {
	if !(TicketPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	s := TicketStatusClosed
	if (TicketPatch{Status: &s}).IsEmpty() {
		t.Error("patch with status should not be empty")
	}
}

func TestTicketPatchApplyToMergesOnlySetFields(t *testing.T) {
	assignee := "tech-c"
	tk := Ticket{
		Status:   TicketStatusOpen,
		Priority: TicketPriorityLow,
	}
	s := TicketStatusInProgress
	TicketPatch{Status: &s, AssignedTo: &assignee}.ApplyTo(&tk)

	if tk.Status != TicketStatusInProgress {
		t.Errorf("Status = %q", tk.Status)
	}
	if tk.Priority != TicketPriorityLow {
		t.Errorf("Priority changed to %q", tk.Priority)
	}
	if tk.AssignedTo == nil || *tk.AssignedTo != "tech-c" {
		t.Errorf("AssignedTo = %v", tk.AssignedTo)
	}
	if tk.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}
}

func TestTicketPatchValidate(t *testing.T) {
	good := TicketStatusWaiting
	bad := TicketStatus("archived")
	if err := (TicketPatch{Status: &good}).Validate(); err != nil {
		t.Errorf("valid status rejected: %v", err)
	}
	if err := (TicketPatch{Status: &bad}).Validate(); err == nil {
		t.Error("invalid status accepted")
	}
	badP := TicketPriority("urgent")
	if err := (TicketPatch{Priority: &badP}).Validate(); err == nil {
		t.Error("invalid priority accepted")
	}
}

func TestEnumValidity(t *testing.T) {
	for _, s := range []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusWaiting, TicketStatusClosed} {
		if !s.IsValid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if TicketStatus("deleted").IsValid() {
		t.Error("unknown status should be invalid")
	}
	for _, p := range []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical} {
		if !p.IsValid() {
			t.Errorf("priority %q should be valid", p)
		}
	}
	if TicketPriority("urgent").IsValid() {
		t.Error("unknown priority should be invalid")
	}
	for _, r := range []Role{RoleUser, RoleTechnician, RoleAdmin} {
		if !r.IsValid() {
			t.Errorf("role %q should be valid", r)
		}
	}
	if Role("manager").IsValid() {
		t.Error("unknown role should be invalid")
	}
}

func TestStatusLabels(t *testing.T) {
	if StatusLabels[TicketStatusInProgress] != "En Progreso" {
		t.Errorf("label = %q", StatusLabels[TicketStatusInProgress])
	}
	if PriorityLabels[TicketPriorityCritical] != "Crítica" {
		t.Errorf("label = %q", PriorityLabels[TicketPriorityCritical])
	}
}

func TestCanManage(t *testing.T) {
	cases := []struct {
		role Role
		want bool
	}{
		{RoleUser, false},
		{RoleTechnician, true},
		{RoleAdmin, true},
	}
	for _, c := range cases {
		p := &Profile{Role: c.role}
		if got := p.CanManage(); got != c.want {
			t.Errorf("CanManage(%s) = %v, want %v", c.role, got, c.want)
		}
	}
	var nilProfile *Profile
	if nilProfile.CanManage() {
		t.Error("nil profile should not manage")
	}
}

func TestNewProvisionedProfile(t *testing.T) {
	p := NewProvisionedProfile("user-a", "ana.garcia@example.test")
	if p.Name != "ana.garcia" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.Role != RoleUser {
		t.Errorf("Role = %q", p.Role)
	}
	if p.Department != "General" {
		t.Errorf("Department = %q", p.Department)
	}

	// Malformed address falls back to the full string.
	p = NewProvisionedProfile("user-b", "no-at-sign")
	if p.Name != "no-at-sign" {
		t.Errorf("Name = %q", p.Name)
	}
}

func TestMessageIsTemporary(t *testing.T) {
	if !(&Message{ID: -1}).IsTemporary() {
		t.Error("negative id should be temporary")
	}
	if (&Message{ID: 12}).IsTemporary() {
		t.Error("positive id should not be temporary")
	}
}
