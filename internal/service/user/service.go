// Package user contains account business logic: registration, login and
// profile reads/updates.
package user

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"harmony/internal/app"
	"harmony/internal/auth"
	"harmony/internal/db"
	svcErr "harmony/internal/errors"
	"harmony/internal/repository"
)

// Service implements the account API on top of the user repository.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
}

// NewService creates a user service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Location string `json:"location"`
	Age      int    `json:"age"`
}

// Profile is the caller-facing view of a user row.
type Profile struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Location  string `json:"location,omitempty"`
	Age       int    `json:"age,omitempty"`
	Biography string `json:"biography,omitempty"`
	Interests string `json:"interests,omitempty"`
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" || in.Email == "" {
		return nil, svcErr.Validation("username and email are required")
	}
	if len(in.Password) < 8 {
		return nil, svcErr.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, svcErr.Dependency(err)
	}

	user := db.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Location:     in.Location,
		Age:          in.Age,
		Active:       true,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if mapped := svcErr.Map(err); svcErr.KindOf(mapped) == svcErr.KindConflict {
			return nil, svcErr.Conflict("username or email already taken")
		}
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Info("user registered", "user", user.ID, "username", user.Username)
	return toProfile(&user), nil
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		// same answer for unknown user and bad password
		return "", nil, svcErr.Forbidden("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, svcErr.Forbidden("invalid credentials")
	}
	if !user.Active {
		return "", nil, svcErr.Forbidden("account disabled")
	}

	token, err := auth.IssueToken(user.ID, s.appCtx.Config.JWT.Secret, s.appCtx.Config.JWT.TTL)
	if err != nil {
		return "", nil, svcErr.Dependency(err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.appCtx.Logger.Error("last login update failed", "user", user.ID, "err", err)
	}
	return token, toProfile(user), nil
}

// Get returns a user's profile.
func (s *Service) Get(ctx context.Context, userID uint64) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toProfile(user), nil
}

// ProfileUpdate carries optional profile field changes; nil means unchanged.
type ProfileUpdate struct {
	Location  *string `json:"location"`
	Age       *int    `json:"age"`
	Biography *string `json:"biography"`
	Interests *string `json:"interests"`
}

// Update applies a partial profile update.
func (s *Service) Update(ctx context.Context, userID uint64, in ProfileUpdate) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if in.Location != nil {
		user.Location = *in.Location
	}
	if in.Age != nil {
		if *in.Age < 18 {
			return nil, svcErr.Validation("age must be at least 18")
		}
		user.Age = *in.Age
	}
	if in.Biography != nil {
		user.Biography = *in.Biography
	}
	if in.Interests != nil {
		user.Interests = *in.Interests
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, svcErr.Map(err)
	}
	return toProfile(user), nil
}

func toProfile(u *db.User) *Profile {
	return &Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Location:  u.Location,
		Age:       u.Age,
		Biography: u.Biography,
		Interests: u.Interests,
	}
}
