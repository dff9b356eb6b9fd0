package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/hexgame-server/internal/entity"
)

type mockResultRepo struct {
	mock.Mock
}

func (that *mockResultRepo) Save(ctx context.Context, result *entity.GameResult) error {
	args := that.Called(ctx, result)

	return args.Error(0)
}

func (that *mockResultRepo) GetByID(ctx context.Context, id string) (*entity.GameResult, error) {
	args := that.Called(ctx, id)

	result, _ := args.Get(0).(*entity.GameResult)

	return result, args.Error(1)
}
