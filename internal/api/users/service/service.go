package usersService

import (
	"context"
	"time"

	"FaceVision/internal/api/users"
	usersRepository "FaceVision/internal/api/users/repository"
	"FaceVision/internal/entity"
	"FaceVision/pkg/bcrypt"
	"FaceVision/pkg/utils"
	"github.com/sirupsen/logrus"
)

const TokenTTL = 7 * 24 * time.Hour

type UsersService interface {
	Auth() AuthDomain
	Profile() ProfileDomain
}

type AuthDomain interface {
	Register(c context.Context, req users.RegisterRequest) (users.AuthResponse, error)
	Login(c context.Context, req users.LoginRequest) (users.AuthResponse, error)
}

type ProfileDomain interface {
	Get(c context.Context, user entity.UserLoginData) (users.UserResponse, error)
	Update(c context.Context, user entity.UserLoginData, req users.UpdateProfileRequest) (users.UserResponse, error)
}

type usersService struct {
	authDomain    AuthDomain
	profileDomain ProfileDomain
}

func (s *usersService) Auth() AuthDomain {
	return s.authDomain
}

func (s *usersService) Profile() ProfileDomain {
	return s.profileDomain
}

type authDomainImpl struct {
	log         *logrus.Logger
	repo        usersRepository.Repository
	bcryptUtils bcrypt.IBcrypt
	utils       utils.IUtils
	now         func() time.Time
}

type profileDomainImpl struct {
	log         *logrus.Logger
	repo        usersRepository.Repository
	bcryptUtils bcrypt.IBcrypt
	now         func() time.Time
}

func New(log *logrus.Logger,
	repo usersRepository.Repository,
	bcryptUtils bcrypt.IBcrypt,
	utils utils.IUtils,
) UsersService {
	return &usersService{
		authDomain:    &authDomainImpl{log: log, repo: repo, bcryptUtils: bcryptUtils, utils: utils, now: time.Now},
		profileDomain: &profileDomainImpl{log: log, repo: repo, bcryptUtils: bcryptUtils, now: time.Now},
	}
}
