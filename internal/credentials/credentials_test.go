package credentials

import (
	"testing"
)

func TestSetGetDelete(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))

	if err := m.Set("tok-123"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	token, source, err := m.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if token != "tok-123" || source != SourceKeyring {
		t.Errorf("Get = %q, %s", token, source)
	}

	if err := m.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	token, source, err = m.Get()
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if token != "" || source != SourceNone {
		t.Errorf("expected no token after delete, got %q from %s", token, source)
	}
}

func TestSetRejectsEmptyToken(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))
	if err := m.Set("   "); err == nil {
		t.Error("expected blank token rejected")
	}
}

func TestSetTrimsToken(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))
	if err := m.Set("  tok  \n"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	token, _, _ := m.Get()
	if token != "tok" {
		t.Errorf("expected trimmed token, got %q", token)
	}
}

func TestEnvironmentOverridesKeyring(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))
	if err := m.Set("from-keyring"); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvToken, "from-env")
	token, source, err := m.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if token != "from-env" || source != SourceEnvironment {
		t.Errorf("expected environment to win, got %q from %s", token, source)
	}
}

func TestMissingTokenIsNotAnError(t *testing.T) {
	m := NewManager(WithKeyring(NewMockKeyring()))
	token, source, err := m.Get()
	if err != nil {
		t.Fatalf("missing token must not error: %v", err)
	}
	if token != "" || source != SourceNone {
		t.Errorf("expected empty token from SourceNone, got %q from %s", token, source)
	}
}
