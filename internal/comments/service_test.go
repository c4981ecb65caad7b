package comments

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/internal/notifications"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/dbtest"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
)

func setup(t *testing.T) (Service, *gorm.DB, *models.User, *models.ItemRequest) {
	t.Helper()
	conn := dbtest.Open(t)
	owner := &models.User{Email: "sari@gudang.test", Name: "Sari", PasswordHash: "x", Role: enums.UserRoleUser, IsActive: true}
	require.NoError(t, conn.Create(owner).Error)
	request := &models.ItemRequest{
		Title:    "Toner printer",
		Priority: enums.RequestPriorityMedium,
		Status:   enums.RequestStatusPending,
		UserID:   owner.ID,
		Quantity: 1,
	}
	require.NoError(t, conn.Create(request).Error)

	svc, err := NewService(NewRepository(conn), db.FromConn(conn), notifications.NewRepository(conn))
	require.NoError(t, err)
	return svc, conn, owner, request
}

func TestManagerCommentNotifiesOwner(t *testing.T) {
	svc, conn, owner, request := setup(t)
	manager := Actor{UserID: uuid.New(), Name: "Budi", Role: enums.UserRoleManager}

	view, err := svc.Create(context.Background(), manager, request.ID, "  Stok toner datang minggu depan ")
	require.NoError(t, err)
	require.Equal(t, "Stok toner datang minggu depan", view.Content)
	require.Equal(t, "Budi", view.AuthorName)

	var note models.Notification
	require.NoError(t, conn.First(&note, "user_id = ?", owner.ID).Error)
	require.Equal(t, enums.NotificationTypeRequestComment, note.Type)
	require.Equal(t, request.ID, *note.RequestID)
	require.Contains(t, note.Message, "Budi")
}

func TestOwnerCommentDoesNotNotify(t *testing.T) {
	svc, conn, owner, request := setup(t)
	_, err := svc.Create(context.Background(), Actor{UserID: owner.ID, Name: owner.Name, Role: owner.Role}, request.ID, "terima kasih")
	require.NoError(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)

	rows, err := svc.List(context.Background(), Actor{UserID: owner.ID, Role: owner.Role}, request.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Sari", rows[0].AuthorName)
}

func TestCommentVisibility(t *testing.T) {
	svc, _, _, request := setup(t)
	stranger := Actor{UserID: uuid.New(), Role: enums.UserRoleUser}

	_, err := svc.List(context.Background(), stranger, request.ID)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = svc.Create(context.Background(), stranger, request.ID, "halo")
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = svc.List(context.Background(), stranger, uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestCommentValidation(t *testing.T) {
	svc, _, owner, request := setup(t)
	actor := Actor{UserID: owner.ID, Role: owner.Role}

	_, err := svc.Create(context.Background(), actor, request.ID, "   ")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Create(context.Background(), actor, request.ID, strings.Repeat("a", maxCommentLength+1))
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
