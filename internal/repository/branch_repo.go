package repository

import (
	"context"
	"errors"

	"tillkeeper/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BranchRepository resolves the optional branch relation of a register.
type BranchRepository interface {
	Create(ctx context.Context, b *model.Branch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error)
}

type branchRepo struct{ db *gorm.DB }

func NewBranchRepository(db *gorm.DB) BranchRepository { return &branchRepo{db: db} }

func (r *branchRepo) Create(ctx context.Context, b *model.Branch) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *branchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var b model.Branch
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
