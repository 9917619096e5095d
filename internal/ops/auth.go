package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/api"
	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/session"
)

// SignInInput contains parameters for the SignIn operation.
type SignInInput struct {
	Username string `validate:"required,max=150"`
	Password string `validate:"required"`
}

// SignUpInput contains parameters for the SignUp operation.
type SignUpInput struct {
	Username string `validate:"required,max=150"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// SessionOutput describes the session after an auth operation.
type SessionOutput struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

// SignIn authenticates and stores the returned credential and user.
func SignIn(ctx context.Context, o *Orchestrator, input SignInInput) (*SessionOutput, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := o.validateInput(input); err != nil {
		return nil, err
	}

	sess, err := o.svc.Login(ctx, api.LoginRequest{Username: input.Username, Password: input.Password})
	if err != nil {
		o.log.Warn("sign in failed", zap.String("username", input.Username), zap.Error(err))
		return nil, err
	}
	return o.startSession(sess)
}

// SignUp registers a user and stores the session the service opens for it.
func SignUp(ctx context.Context, o *Orchestrator, input SignUpInput) (*SessionOutput, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := o.validateInput(input); err != nil {
		return nil, err
	}

	sess, err := o.svc.Signup(ctx, api.SignupRequest{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		o.log.Warn("sign up failed", zap.String("username", input.Username), zap.Error(err))
		return nil, err
	}
	return o.startSession(sess)
}

func (o *Orchestrator) startSession(sess session.Session) (*SessionOutput, error) {
	// A new user must not see the previous user's recipes
	o.resetView()
	if err := o.guard.Begin(sess); err != nil {
		return nil, err
	}
	return &SessionOutput{Authenticated: true, Username: sess.User.Username}, nil
}

// Logout clears the session and the displayed state.
func Logout(o *Orchestrator) (*SessionOutput, error) {
	if err := o.guard.Logout(); err != nil {
		return nil, err
	}
	o.resetView()
	return &SessionOutput{Authenticated: false}, nil
}

// Status reports the stored session without contacting the service.
func Status(o *Orchestrator) *SessionOutput {
	sess, ok := o.guard.Current()
	if !ok {
		return &SessionOutput{Authenticated: false}
	}
	return &SessionOutput{Authenticated: true, Username: sess.User.Username}
}

// EntryDecision decides whether the entry page should send the user on to the
// main page. The service is asked only when configured to.
func EntryDecision(ctx context.Context, o *Orchestrator) session.Outcome {
	var checker session.Checker
	if o.cfg.CheckSessionRemotely {
		checker = o.svc
	}
	outcome := o.guard.EntryDecision(ctx, checker)
	if outcome == session.Proceed && !o.guard.IsAuthenticated() {
		o.resetView()
	}
	return outcome
}

// validateInput runs struct validation and turns the first failure into a VALIDATION error.
func (o *Orchestrator) validateInput(input any) error {
	err := o.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewInternal(err)
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return errors.NewValidation(fmt.Sprintf("%s is required", field))
	case "email":
		return errors.NewValidation(fmt.Sprintf("%s must be a valid email address", field))
	case "max":
		return errors.NewValidation(fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	}
	return errors.NewValidation(fmt.Sprintf("%s is invalid", field))
}
