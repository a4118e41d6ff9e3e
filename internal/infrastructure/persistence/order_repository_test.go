package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/streamvault/backend/internal/domain/checkout"
	"github.com/streamvault/backend/internal/domain/shared"
)

// newMockOrderRepository creates a GormOrderRepository with a mocked SQL connection
func newMockOrderRepository(t *testing.T) (*GormOrderRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormOrderRepository(gormDB, "SV"), mock, mockDB
}

func orderColumns() []string {
	return []string{
		"id", "created_at", "updated_at",
		"order_code", "customer_email", "customer_name",
		"line_items", "total_amount", "currency",
		"payment_method", "payment_status", "fulfillment_status",
		"external_charge_id", "credentials", "paid_at", "fulfilled_at",
	}
}

func orderRow(id uuid.UUID, orderCode string, paymentStatus checkout.PaymentStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderColumns()).AddRow(
		id, now, now,
		orderCode, "buyer@example.com", "Jane Buyer",
		`[{"product_code":"iptv-12m","name":"IPTV 12 Month Plan","unit_price_minor":4999,"quantity":1,"line_total_minor":4999}]`,
		int64(4999), "USD",
		"card", paymentStatus, "pending",
		"pi_123", nil, nil, nil,
	)
}

func TestGormOrderRepository_FindByOrderCode(t *testing.T) {
	t.Run("finds existing order", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE order_code = \$1`).
			WithArgs("SV-2026-00001", 1).
			WillReturnRows(orderRow(id, "SV-2026-00001", checkout.PaymentStatusPending))

		order, err := repo.FindByOrderCode(context.Background(), "SV-2026-00001")

		require.NoError(t, err)
		assert.Equal(t, "SV-2026-00001", order.OrderCode)
		assert.Equal(t, checkout.PaymentStatusPending, order.PaymentStatus)
		require.Len(t, order.LineItems, 1)
		assert.Equal(t, "iptv-12m", order.LineItems[0].ProductCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for unknown code", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE order_code = \$1`).
			WithArgs("SV-2026-99999", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		order, err := repo.FindByOrderCode(context.Background(), "SV-2026-99999")

		assert.Nil(t, order)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_FindByExternalChargeID(t *testing.T) {
	t.Run("finds order by charge reference", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE external_charge_id = \$1`).
			WithArgs("pi_123", 1).
			WillReturnRows(orderRow(id, "SV-2026-00001", checkout.PaymentStatusPending))

		order, err := repo.FindByExternalChargeID(context.Background(), "pi_123")

		require.NoError(t, err)
		assert.Equal(t, "pi_123", order.ExternalChargeID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty charge id", func(t *testing.T) {
		repo, _, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		_, err := repo.FindByExternalChargeID(context.Background(), "")
		assert.Error(t, err)
	})

	t.Run("returns not found for unknown charge", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE external_charge_id = \$1`).
			WithArgs("pi_unknown", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByExternalChargeID(context.Background(), "pi_unknown")
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormOrderRepository_MarkPaymentCompleted(t *testing.T) {
	t.Run("transitions pending order", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		transitioned, err := repo.MarkPaymentCompleted(context.Background(), id)

		require.NoError(t, err)
		assert.True(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports already transitioned order", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		transitioned, err := repo.MarkPaymentCompleted(context.Background(), id)

		require.NoError(t, err)
		assert.False(t, transitioned, "repeat delivery should find zero rows")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_MarkPaymentFailed(t *testing.T) {
	repo, mock, mockDB := newMockOrderRepository(t)
	defer mockDB.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	transitioned, err := repo.MarkPaymentFailed(context.Background(), id)

	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderRepository_AttachCredentials(t *testing.T) {
	creds := checkout.Credentials{
		Username:   "sv_a8k2m9pq",
		Password:   "Xk7mP2nQ9rTw4z",
		ServiceURL: "https://play.streamvault.example",
		IssuedAt:   time.Now(),
	}

	t.Run("attaches credentials once", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		attached, err := repo.AttachCredentials(context.Background(), id, creds)

		require.NoError(t, err)
		assert.True(t, attached)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports already issued credentials", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		attached, err := repo.AttachCredentials(context.Background(), id, creds)

		require.NoError(t, err)
		assert.False(t, attached)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_GenerateOrderCode(t *testing.T) {
	t.Run("increments the highest code for the year", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		year := time.Now().Year()
		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE order_code LIKE \$1`).
			WillReturnRows(orderRow(id, fmt.Sprintf("SV-%d-00042", year), checkout.PaymentStatusCompleted))

		code, err := repo.GenerateOrderCode(context.Background())

		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("SV-%d-00043", year), code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("starts at one when no orders exist", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE order_code LIKE \$1`).
			WillReturnError(gorm.ErrRecordNotFound)

		code, err := repo.GenerateOrderCode(context.Background())

		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("SV-%d-00001", time.Now().Year()), code)
	})
}
