package repository

import (
	"github.com/mvhoang/Solvio/internal/model"
	"gorm.io/gorm"
)

type StudyGuideRepository interface {
	Create(guide *model.StudyGuide) error
	FindByID(id uint) (*model.StudyGuide, error)
	FindByUser(userID uint) ([]model.StudyGuide, error)
	Update(guide *model.StudyGuide) error
	Delete(id uint) error
}

type studyGuideRepository struct {
	db *gorm.DB
}

func NewStudyGuideRepository(db *gorm.DB) StudyGuideRepository {
	return &studyGuideRepository{db: db}
}

func (r *studyGuideRepository) Create(guide *model.StudyGuide) error {
	return r.db.Create(guide).Error
}

func (r *studyGuideRepository) FindByID(id uint) (*model.StudyGuide, error) {
	var guide model.StudyGuide
	if err := r.db.First(&guide, id).Error; err != nil {
		return nil, err
	}
	return &guide, nil
}

func (r *studyGuideRepository) FindByUser(userID uint) ([]model.StudyGuide, error) {
	var guides []model.StudyGuide
	if err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&guides).Error; err != nil {
		return nil, err
	}
	return guides, nil
}

func (r *studyGuideRepository) Update(guide *model.StudyGuide) error {
	return r.db.Save(guide).Error
}

func (r *studyGuideRepository) Delete(id uint) error {
	return r.db.Delete(&model.StudyGuide{}, id).Error
}
