package service

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/database"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfileAndRoles(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	svc := NewUserService(repository.NewUserRepository(db))

	for _, u := range []model.User{
		{FirstName: "Grace", Email: "grace@example.com", Role: model.Admin},
		{FirstName: "Linus", Email: "linus@example.com", Role: model.Student},
		{FirstName: "Barbara", Email: "barbara@example.com", Role: model.Student},
	} {
		require.NoError(t, db.Create(&u).Error)
	}

	user, err := svc.UpdateProfile(2, UpdateProfileRequest{LastName: util.StringPtr("  Torvalds ")})
	require.NoError(t, err)
	assert.Equal(t, "Linus Torvalds", user.FullName())

	_, err = svc.GetUser(99)
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	_, err = svc.UpdateRole(1, 1, model.Student)
	assert.True(t, util.IsKind(err, util.KindValidation))
	_, err = svc.UpdateRole(1, 2, "moderator")
	assert.True(t, util.IsKind(err, util.KindValidation))

	user, err = svc.UpdateRole(1, 2, model.Instructor)
	require.NoError(t, err)
	assert.Equal(t, model.Instructor, user.Role)

	users, total, err := svc.GetUsers(repository.UserFilter{Role: model.Student}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Barbara", users[0].FirstName)

	_, total, err = svc.GetUsers(repository.UserFilter{Search: "torv"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
