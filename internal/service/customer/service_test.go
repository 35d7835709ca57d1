package customer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/entity"
	"github.com/jsMelius/Gleisure/pkg/errorbank"
)

func TestCreateValidation(t *testing.T) {
	svc := &Service{logger: zap.NewNop()}

	tests := []struct {
		name     string
		customer *entity.Customer
	}{
		{name: "nil payload", customer: nil},
		{name: "missing name", customer: &entity.Customer{}},
		{
			name: "negative limit",
			customer: &entity.Customer{
				CustomerName: "Harbourside Hotel",
				CreditLimit:  decimal.RequireFromString("-1"),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Create(context.Background(), tc.customer)
			require.Error(t, err)
			var appErr *errorbank.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
		})
	}
}

func TestUpdateRequiresPayload(t *testing.T) {
	svc := &Service{logger: zap.NewNop()}

	err := svc.Update(context.Background(), nil)
	require.Error(t, err)
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
}
