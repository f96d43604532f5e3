package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/logger"
	"github.com/nebulachat/backend/internal/model/auth"
	"github.com/nebulachat/backend/internal/store"
)

var (
	ErrPhoneRequired  = errors.New("phone number is required")
	ErrNoPendingLogin = errors.New("no login pending verification")
	ErrInvalidOTP     = errors.New("invalid verification code")
)

const otpLength = 6

// Service runs the simulated phone/OTP login flow. The code is issued
// locally and logged in place of SMS delivery; this is a stand-in, not
// authentication security.
type Service struct {
	mu    sync.Mutex
	state auth.State
	store store.Store
}

// NewService loads the auth aggregate from the store.
func NewService(st store.Store) (*Service, error) {
	svc := &Service{store: st}
	if st != nil {
		if _, err := st.Load(store.KeyAuth, &svc.state); err != nil {
			return nil, fmt.Errorf("load auth state: %w", err)
		}
	}
	if svc.state.Step == "" {
		svc.state.Step = auth.StepPhone
	}
	return svc, nil
}

func (s *Service) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(store.KeyAuth, s.state); err != nil {
		logger.Log.Error("persist_auth_state_failed", zap.Error(err))
	}
}

// Login accepts a phone number and issues a one-time code.
func (s *Service) Login(phone, countryCode string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ErrPhoneRequired
	}

	code, err := generateCode(otpLength)
	if err != nil {
		return fmt.Errorf("issue verification code: %w", err)
	}

	s.mu.Lock()
	s.state.TempPhone = phone
	s.state.TempCountryCode = strings.TrimSpace(countryCode)
	s.state.PendingCode = code
	s.state.Step = auth.StepOTP
	s.persist()
	s.mu.Unlock()

	// Simulated delivery: the code goes to the log instead of an SMS.
	logger.Log.Info("otp_issued", zap.String("phone", phone), zap.String("code", code))
	return nil
}

// VerifyOTP checks the submitted code and authenticates the user.
func (s *Service) VerifyOTP(code string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Step != auth.StepOTP || s.state.PendingCode == "" {
		return auth.User{}, ErrNoPendingLogin
	}
	if strings.TrimSpace(code) != s.state.PendingCode {
		return auth.User{}, ErrInvalidOTP
	}

	user := auth.User{
		ID:            uuid.NewString(),
		Phone:         s.state.TempPhone,
		CountryCode:   s.state.TempCountryCode,
		Authenticated: true,
	}
	s.state.User = &user
	s.state.Step = auth.StepAuthenticated
	s.state.TempPhone = ""
	s.state.TempCountryCode = ""
	s.state.PendingCode = ""
	s.persist()

	logger.Log.Info("login_verified", zap.String("user", user.ID))
	return user, nil
}

// Logout resets the flow to its initial step.
func (s *Service) Logout() {
	s.mu.Lock()
	s.state = auth.State{Step: auth.StepPhone}
	s.persist()
	s.mu.Unlock()
}

// State returns a copy of the auth aggregate with the pending code redacted.
func (s *Service) State() auth.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	out.PendingCode = ""
	if s.state.User != nil {
		user := *s.state.User
		out.User = &user
	}
	return out
}

func generateCode(digits int) (string, error) {
	var b strings.Builder
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", n.Int64())
	}
	return b.String(), nil
}
