package usersService

import (
	"context"
	"errors"

	"FaceVision/internal/api/users"
	"FaceVision/internal/entity"
	contextPkg "FaceVision/pkg/context"
	jwtPkg "FaceVision/pkg/jwt"
	"github.com/sirupsen/logrus"
)

func (s *authDomainImpl) Register(c context.Context, req users.RegisterRequest) (users.AuthResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return users.AuthResponse{}, users.ErrCredentialsRequired
	}

	repo, err := s.repo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return users.AuthResponse{}, err
	}
	defer repo.Rollback()

	if _, err := repo.Users.GetByEmail(c, email); err == nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Warn("Registration with existing email")
		return users.AuthResponse{}, users.ErrEmailAlreadyExists
	} else if !errors.Is(err, users.ErrUserNotFound) {
		return users.AuthResponse{}, err
	}

	hashed, err := s.bcryptUtils.HashPassword(req.Password)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to hash password")
		return users.AuthResponse{}, err
	}

	now := s.now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return users.AuthResponse{}, err
	}

	user := entity.User{
		ID:        id,
		Email:     email,
		Name:      req.Name,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := repo.Users.CreateUser(c, user); err != nil {
		return users.AuthResponse{}, err
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit user registration")
		return users.AuthResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
	}).Info("User registered")

	return s.issue(requestID, user)
}

func (s *authDomainImpl) Login(c context.Context, req users.LoginRequest) (users.AuthResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return users.AuthResponse{}, users.ErrCredentialsRequired
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return users.AuthResponse{}, err
	}

	user, err := repo.Users.GetByEmail(c, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
			}).Warn("Login for unknown email")
			return users.AuthResponse{}, users.ErrInvalidCredentials
		}
		return users.AuthResponse{}, err
	}

	if err := s.bcryptUtils.ComparePassword(user.Password, req.Password); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Password comparison failed")
		return users.AuthResponse{}, users.ErrInvalidCredentials
	}

	return s.issue(requestID, user)
}

func (s *authDomainImpl) issue(requestID string, user entity.User) (users.AuthResponse, error) {
	token, _, err := jwtPkg.Sign(MakeUserData(user), TokenTTL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to sign token")
		return users.AuthResponse{}, err
	}

	return users.AuthResponse{
		User:  MakeUserResponse(user),
		Token: token,
	}, nil
}
