package auth

import (
	"errors"
	"testing"

	modelauth "github.com/nebulachat/backend/internal/model/auth"
	"github.com/nebulachat/backend/internal/store"
)

func TestLoginRequiresPhone(t *testing.T) {
	svc, err := NewService(store.NewMemory())
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	if err := svc.Login("   ", "+1"); !errors.Is(err, ErrPhoneRequired) {
		t.Fatalf("expected ErrPhoneRequired, got %v", err)
	}
}

func TestLoginVerifyFlow(t *testing.T) {
	svc, err := NewService(store.NewMemory())
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	if err := svc.Login("5551234567", "+1"); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if got := svc.State().Step; got != modelauth.StepOTP {
		t.Fatalf("step = %q, want %q", got, modelauth.StepOTP)
	}
	if svc.State().PendingCode != "" {
		t.Fatal("pending code leaked through State()")
	}

	code := svc.state.PendingCode
	if len(code) != otpLength {
		t.Fatalf("code length = %d, want %d", len(code), otpLength)
	}

	if _, err := svc.VerifyOTP("000000x"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}

	user, err := svc.VerifyOTP(code)
	if err != nil {
		t.Fatalf("VerifyOTP err: %v", err)
	}
	if !user.Authenticated || user.Phone != "5551234567" || user.CountryCode != "+1" {
		t.Fatalf("user = %+v", user)
	}

	state := svc.State()
	if state.Step != modelauth.StepAuthenticated || state.User == nil {
		t.Fatalf("state after verify = %+v", state)
	}
	if state.TempPhone != "" || svc.state.PendingCode != "" {
		t.Fatal("temporary login fields not cleared after verify")
	}

	// A second submission of the same code has nothing to verify against.
	if _, err := svc.VerifyOTP(code); !errors.Is(err, ErrNoPendingLogin) {
		t.Fatalf("expected ErrNoPendingLogin, got %v", err)
	}
}

func TestVerifyWithoutPendingLogin(t *testing.T) {
	svc, err := NewService(store.NewMemory())
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	if _, err := svc.VerifyOTP("123456"); !errors.Is(err, ErrNoPendingLogin) {
		t.Fatalf("expected ErrNoPendingLogin, got %v", err)
	}
}

func TestLogoutResetsFlow(t *testing.T) {
	st := store.NewMemory()
	svc, err := NewService(st)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	if err := svc.Login("5551234567", "+1"); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if _, err := svc.VerifyOTP(svc.state.PendingCode); err != nil {
		t.Fatalf("VerifyOTP err: %v", err)
	}

	svc.Logout()
	state := svc.State()
	if state.Step != modelauth.StepPhone || state.User != nil {
		t.Fatalf("state after logout = %+v", state)
	}

	// The reset survives a reload.
	reloaded, err := NewService(st)
	if err != nil {
		t.Fatalf("reload err: %v", err)
	}
	if got := reloaded.State().Step; got != modelauth.StepPhone {
		t.Fatalf("reloaded step = %q, want %q", got, modelauth.StepPhone)
	}
}

func TestAuthStatePersistsAcrossReload(t *testing.T) {
	st := store.NewMemory()
	svc, err := NewService(st)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	if err := svc.Login("5551234567", "+1"); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	user, err := svc.VerifyOTP(svc.state.PendingCode)
	if err != nil {
		t.Fatalf("VerifyOTP err: %v", err)
	}

	reloaded, err := NewService(st)
	if err != nil {
		t.Fatalf("reload err: %v", err)
	}
	state := reloaded.State()
	if state.User == nil || state.User.ID != user.ID {
		t.Fatalf("reloaded user = %+v, want id %q", state.User, user.ID)
	}
}
