package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bloodbank/pkg/auth"
	"bloodbank/pkg/models"
	"bloodbank/pkg/store"
)

type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            string `json:"role"`
	BloodGroup      string `json:"blood_group"`
	Mobile          string `json:"mobile"`
	Hospital        string `json:"hospital"`
}

// RegisterUser validates the input, rejects duplicate credentials and stores
// the new account. Regular users sign in by email, admins by whitelisted id.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Hospital = strings.TrimSpace(in.Hospital)
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	if err := s.validateRegistration(in); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:       in.Name,
		Role:       in.Role,
		BloodGroup: in.BloodGroup,
		Mobile:     in.Mobile,
	}

	var existing *models.User
	var err error
	if in.Role == models.RoleAdmin {
		user.Username = &in.Username
		user.Hospital = in.Hospital
		existing, err = s.store.UserByUsername(ctx, in.Username)
	} else {
		user.Email = &in.Email
		existing, err = s.store.UserByEmail(ctx, in.Email)
	}
	switch {
	case err == nil && existing != nil:
		return nil, ErrConflict
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

func (s *Service) validateRegistration(in RegisterInput) error {
	if err := required("name", in.Name); err != nil {
		return err
	}
	switch in.Role {
	case models.RoleUser:
		if err := required("email", in.Email); err != nil {
			return err
		}
		if err := validateEmail(in.Email); err != nil {
			return err
		}
	case models.RoleAdmin:
		if in.Username == "" || in.Hospital == "" {
			return invalid("hospital and admin id are required for admin registration")
		}
		if !s.IsAdminID(in.Username) {
			return invalid("invalid admin id")
		}
	default:
		return invalid("invalid role %q", in.Role)
	}
	if err := validatePassword(in.Password, in.ConfirmPassword); err != nil {
		return err
	}
	if err := validateBloodType(in.BloodGroup); err != nil {
		return err
	}
	return validateMobile(in.Mobile)
}

// Authenticate accepts an email or an admin id as login.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user *models.User
	var err error
	if strings.Contains(login, "@") {
		user, err = s.store.UserByEmail(ctx, strings.ToLower(login))
	} else {
		user, err = s.store.UserByUsername(ctx, login)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.store.UserByID(ctx, id)
}

func (s *Service) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.store.UserByUsername(ctx, strings.TrimSpace(username))
}
