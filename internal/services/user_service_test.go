package services

import (
	"context"
	"testing"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateUser_HashesPassword(t *testing.T) {
	var stored *models.User
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user-1"
			stored = user
			return user, nil
		},
	}
	hasher := testHasher()
	svc := NewUserService(repo, hasher, discardLogger())

	created, err := svc.CreateUser(context.Background(), &models.User{Email: " Alice@Example.com ", Username: "alice"}, "Str0ng-Passw0rd")

	require.NoError(t, err)
	assert.Equal(t, "user-1", created.ID)
	assert.Equal(t, "alice@example.com", stored.Email)
	assert.NotEqual(t, "Str0ng-Passw0rd", stored.PasswordHash)
	assert.True(t, hasher.Compare(stored.PasswordHash, "Str0ng-Passw0rd"))
}

func TestUserService_CreateUser_WeakPassword(t *testing.T) {
	svc := NewUserService(&MockUserRepository{}, testHasher(), discardLogger())

	_, err := svc.CreateUser(context.Background(), &models.User{Email: "a@example.com", Username: "a"}, "short")
	assert.ErrorIs(t, err, pkgauth.ErrWeakPassword)
}

func TestUserService_BootstrapAdmin(t *testing.T) {
	t.Run("creates an administrator when none exists", func(t *testing.T) {
		var created *models.User
		repo := &MockUserRepository{
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				created = user
				return user, nil
			},
		}
		svc := NewUserService(repo, testHasher(), discardLogger())

		require.NoError(t, svc.BootstrapAdmin(context.Background(), "root@example.com", "root", "Str0ng-Passw0rd"))
		require.NotNil(t, created)
		assert.True(t, created.Roles.IsAdmin())
		assert.True(t, created.IsVerified())
	})

	t.Run("skips when an administrator exists", func(t *testing.T) {
		repo := &MockUserRepository{
			CountAdministratorsFunc: func(ctx context.Context) (int, error) { return 1, nil },
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				t.Fatal("must not create a second administrator")
				return nil, nil
			},
		}
		svc := NewUserService(repo, testHasher(), discardLogger())
		assert.NoError(t, svc.BootstrapAdmin(context.Background(), "root@example.com", "root", "Str0ng-Passw0rd"))
	})

	t.Run("skips when unconfigured", func(t *testing.T) {
		svc := NewUserService(&MockUserRepository{}, testHasher(), discardLogger())
		assert.NoError(t, svc.BootstrapAdmin(context.Background(), "", "root", ""))
	})

	t.Run("conflict", func(t *testing.T) {
		repo := &MockUserRepository{
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				return nil, models.ErrConflict
			},
		}
		svc := NewUserService(repo, testHasher(), discardLogger())
		assert.Error(t, svc.BootstrapAdmin(context.Background(), "root@example.com", "root", "Str0ng-Passw0rd"))
	})
}
