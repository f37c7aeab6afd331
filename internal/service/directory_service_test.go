package service

import (
	"context"
	"testing"

	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/pkg/util"
)

func TestEnsureProfileProvisionsOnFirstContact(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)

	p, err := env.directory.EnsureProfile(context.Background(), "user-new", "diego.ruiz@example.com")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if p.Name != "diego.ruiz" || p.Role != domain.RoleUser || p.Department != "General" {
		t.Fatalf("provisioned profile = %+v", p)
	}

	again, err := env.directory.EnsureProfile(context.Background(), "user-new", "diego.ruiz@example.com")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again.ID != p.ID {
		t.Errorf("second call provisioned a new profile: %+v", again)
	}
	all, _ := env.profiles.List(context.Background())
	if len(all) != len(testProfiles())+1 {
		t.Errorf("profiles = %d, want %d", len(all), len(testProfiles())+1)
	}
}

func TestProfileUpdateIsAdminOnly(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	techSess := env.open(t, "tech-c")

	role := domain.RoleTechnician
	_, err := env.directory.UpdateProfile(context.Background(), techSess, "user-a", domain.ProfilePatch{Role: &role})
	if de := util.ToDomainError(err); de == nil || de.Code != "FORBIDDEN" {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}

	adminSess := env.open(t, "admin-b")
	updated, err := env.directory.UpdateProfile(context.Background(), adminSess, "user-a", domain.ProfilePatch{Role: &role})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Role != domain.RoleTechnician {
		t.Errorf("role = %q", updated.Role)
	}
	if cached, ok := adminSess.Profile("user-a"); !ok || cached.Role != domain.RoleTechnician {
		t.Errorf("session copy = %+v", cached)
	}
}

func TestProfileUpdateRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	adminSess := env.open(t, "admin-b")

	role := domain.Role("supervisor")
	_, err := env.directory.UpdateProfile(context.Background(), adminSess, "user-a", domain.ProfilePatch{Role: &role})
	if de := util.ToDomainError(err); de == nil || de.Code != "VALIDATION" {
		t.Fatalf("err = %v, want VALIDATION", err)
	}
}

func TestDeleteOwnProfileIsRefused(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	adminSess := env.open(t, "admin-b")

	err := env.directory.DeleteProfile(context.Background(), adminSess, "admin-b")
	if de := util.ToDomainError(err); de == nil || de.Code != "CONFLICT" {
		t.Fatalf("err = %v, want CONFLICT", err)
	}
	if _, ok := adminSess.Profile("admin-b"); !ok {
		t.Error("own profile vanished from session")
	}
}

func TestCategoryWriteTriggersResyncInOtherSessions(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	adminSess := env.open(t, "admin-b")

	category := &domain.Category{Name: "Redes", Icon: "wifi"}
	if err := env.directory.CreateCategory(context.Background(), adminSess, category); err != nil {
		t.Fatalf("create category: %v", err)
	}

	found := false
	for _, c := range userSess.Categories() {
		if c.Name == "Redes" {
			found = true
		}
	}
	if !found {
		t.Errorf("user session categories = %+v", userSess.Categories())
	}
}

func TestFAQValidationAndGating(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	adminSess := env.open(t, "admin-b")

	faq := &domain.FAQ{Question: "¿Cómo reinicio mi contraseña?", Answer: "Desde el portal de identidad."}
	if err := env.directory.CreateFAQ(context.Background(), userSess, faq); util.ToDomainError(err).Code != "FORBIDDEN" {
		t.Fatalf("user create = %v, want FORBIDDEN", err)
	}
	if err := env.directory.CreateFAQ(context.Background(), adminSess, &domain.FAQ{Question: "incompleta"}); util.ToDomainError(err).Code != "VALIDATION" {
		t.Fatalf("empty answer = %v, want VALIDATION", err)
	}
	if err := env.directory.CreateFAQ(context.Background(), adminSess, faq); err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if len(adminSess.FAQs()) != 1 {
		t.Errorf("faqs = %+v", adminSess.FAQs())
	}
}
