package usersService

import (
	"context"
	"errors"

	"FaceVision/internal/api/users"
	"FaceVision/internal/entity"
	contextPkg "FaceVision/pkg/context"
	"github.com/sirupsen/logrus"
)

// Get reads the caller's current record so a renamed user sees the new name
// before their token is refreshed.
func (s *profileDomainImpl) Get(c context.Context, user entity.UserLoginData) (users.UserResponse, error) {
	repo, err := s.repo.NewClient(false)
	if err != nil {
		return users.UserResponse{}, err
	}

	dbUser, err := repo.Users.GetByID(c, user.ID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return users.UserResponse{}, users.ErrUnauthenticated
		}
		return users.UserResponse{}, err
	}

	return MakeUserResponse(dbUser), nil
}

func (s *profileDomainImpl) Update(c context.Context, user entity.UserLoginData, req users.UpdateProfileRequest) (users.UserResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	repo, err := s.repo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return users.UserResponse{}, err
	}
	defer repo.Rollback()

	dbUser, err := repo.Users.GetByID(c, user.ID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return users.UserResponse{}, users.ErrUnauthenticated
		}
		return users.UserResponse{}, err
	}

	if req.Name == nil && req.Password == nil {
		return MakeUserResponse(dbUser), nil
	}

	if req.Name != nil {
		dbUser.Name = *req.Name
	}

	if req.Password != nil {
		hashed, err := s.bcryptUtils.HashPassword(*req.Password)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to hash password")
			return users.UserResponse{}, err
		}
		dbUser.Password = hashed
	}

	dbUser.UpdatedAt = s.now()

	if err := repo.Users.UpdateUser(c, dbUser); err != nil {
		return users.UserResponse{}, err
	}

	if err := repo.Commit(); err != nil {
		return users.UserResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    dbUser.ID,
	}).Info("Profile updated")

	return MakeUserResponse(dbUser), nil
}
