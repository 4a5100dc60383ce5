//go:build integration

package integration_test

import (
	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

type UserRepositoryTestSuite struct {
	BaseIntegrationSuite
}

func (s *UserRepositoryTestSuite) TestCreateAndFind() {
	user := model.NewUser(&model.User{Email: "Ada@Example.com"})
	s.Require().NoError(s.Repo.CreateUser(s.Ctx, user))

	found, err := s.Repo.FindUserByEmail(s.Ctx, " ADA@example.com ")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)
	s.Equal(user.PasswordHash, found.PasswordHash)

	dup := model.NewUser(&model.User{Email: "ada@example.com"})
	s.ErrorIs(s.Repo.CreateUser(s.Ctx, dup), apperrors.ErrDuplicate)

	_, err = s.Repo.FindUserByEmail(s.Ctx, "nobody@example.com")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *UserRepositoryTestSuite) TestPing() {
	s.NoError(s.Repo.Ping(s.Ctx))
}
