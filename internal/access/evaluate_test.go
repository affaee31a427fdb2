package access

import (
	"testing"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

func TestEvaluate_PublicAndPrivate(t *testing.T) {
	if v := Evaluate(Public(), "", false); !v.Allowed {
		t.Fatalf("public app should allow anonymous, got %+v", v)
	}
	if v := Evaluate(Private(), "someone@x.com", false); v.Allowed || v.Reason != DenyPrivate {
		t.Fatalf("private app should deny with private, got %+v", v)
	}
}

func TestEvaluate_PasswordSignalsGate(t *testing.T) {
	v := Evaluate(PasswordGate("s3cret"), "someone@x.com", false)
	if v.Allowed || v.Reason != DenyPasswordRequired {
		t.Fatalf("password app should signal password_required, got %+v", v)
	}
}

func TestEvaluate_EmailList(t *testing.T) {
	cfg := EmailList([]string{"a@x.com", "b@x.com"})

	if v := Evaluate(cfg, "", false); v.Allowed || v.Reason != DenyEmailRequired {
		t.Fatalf("anonymous should get email_required, got %+v", v)
	}
	// Case-insensitive match
	if v := Evaluate(cfg, "B@X.com", false); !v.Allowed {
		t.Fatalf("mixed-case listed email should be allowed, got %+v", v)
	}
	if v := Evaluate(cfg, "c@x.com", false); v.Allowed || v.Reason != DenyNotOnList {
		t.Fatalf("unlisted email should get not_on_list, got %+v", v)
	}
}

func TestEvaluate_Domain(t *testing.T) {
	cfg := DomainGate("acme.com")

	if v := Evaluate(cfg, "bob@acme.com", false); !v.Allowed {
		t.Fatalf("matching domain should be allowed, got %+v", v)
	}
	if v := Evaluate(cfg, "Bob@ACME.com", false); !v.Allowed {
		t.Fatalf("domain match should be case-insensitive, got %+v", v)
	}
	if v := Evaluate(cfg, "bob@other.com", false); v.Allowed || v.Reason != DenyWrongDomain {
		t.Fatalf("other domain should get wrong_domain, got %+v", v)
	}
	if v := Evaluate(cfg, "", false); v.Allowed || v.Reason != DenyEmailRequired {
		t.Fatalf("anonymous should get email_required, got %+v", v)
	}
}

func TestEvaluate_DomainAcceptsLeadingAt(t *testing.T) {
	if v := Evaluate(DomainGate("@acme.com"), "bob@acme.com", false); !v.Allowed {
		t.Fatalf("leading @ in configured domain should be tolerated, got %+v", v)
	}
}

func TestEvaluate_OwnerBypassesEverything(t *testing.T) {
	configs := []Config{
		Private(),
		Public(),
		PasswordGate("x"),
		EmailList([]string{"a@x.com"}),
		DomainGate("acme.com"),
	}
	for _, cfg := range configs {
		if v := Evaluate(cfg, "", true); !v.Allowed {
			t.Fatalf("owner must bypass %s gate, got %+v", cfg.Kind(), v)
		}
	}
}

// Totalidad: toda combinación (kind × email presente/ausente × owner)
// produce exactamente un verdict. Los denies llevan reason.
func TestEvaluate_Total(t *testing.T) {
	configs := []Config{
		Private(),
		Public(),
		PasswordGate("x"),
		EmailList([]string{"a@x.com"}),
		DomainGate("acme.com"),
		{}, // zero value degrada a private
	}
	emails := []string{"", "a@x.com", "not-an-email"}
	for _, cfg := range configs {
		for _, email := range emails {
			for _, owner := range []bool{false, true} {
				v := Evaluate(cfg, email, owner)
				if !v.Allowed && v.Reason == "" {
					t.Fatalf("deny without reason: kind=%s email=%q owner=%v", cfg.Kind(), email, owner)
				}
				if v.Allowed && v.Reason != "" {
					t.Fatalf("allow with reason: kind=%s email=%q owner=%v", cfg.Kind(), email, owner)
				}
			}
		}
	}
}

// FromApp debe ignorar campos stale de modos no activos.
func TestFromApp_IgnoresStaleFields(t *testing.T) {
	app := &repository.App{
		AccessType:     repository.AccessPublic,
		AccessPassword: "stale-secret",
		AccessEmails:   []string{"stale@x.com"},
		AccessDomain:   "stale.com",
	}
	cfg := FromApp(app)
	if cfg.Password() != "" || cfg.Domain() != "" {
		t.Fatalf("stale payloads leaked into config: %+v", cfg)
	}
	if v := Evaluate(cfg, "", false); !v.Allowed {
		t.Fatalf("public app with stale fields should still allow, got %+v", v)
	}
}

func TestFromApp_UnknownTypeDegradesToPrivate(t *testing.T) {
	app := &repository.App{AccessType: repository.AccessType("whatever")}
	if v := Evaluate(FromApp(app), "a@x.com", false); v.Allowed || v.Reason != DenyPrivate {
		t.Fatalf("unknown access type should behave as private, got %+v", v)
	}
}
