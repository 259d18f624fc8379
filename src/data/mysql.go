package data

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	return db
}

// QuestionStore is the gorm-backed implementation of questions.Store.
type QuestionStore struct {
	db *gorm.DB
}

func NewQuestionStore(db *gorm.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

func (s *QuestionStore) Create(ctx context.Context, q *types.Question) error {
	return s.db.WithContext(ctx).Create(q).Error
}

func (s *QuestionStore) Get(ctx context.Context, userID, questionID string) (*types.Question, error) {
	var q types.Question
	err := s.db.WithContext(ctx).
		First(&q, "user_id = ? AND question_id = ?", userID, questionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, questions.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (s *QuestionStore) List(ctx context.Context, userID string, limit, offset int) ([]types.Question, error) {
	var qs []types.Question
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&qs).Error
	return qs, err
}

func (s *QuestionStore) MarkProcessing(ctx context.Context, userID, questionID string) error {
	return s.db.WithContext(ctx).Model(&types.Question{}).
		Where("user_id = ? AND question_id = ? AND status = ?", userID, questionID, types.StatusPending).
		Update("status", types.StatusProcessing).Error
}

// Finish is a conditional write: the terminal result lands only if the record
// has not already reached a terminal status. MySQL makes the check-and-set
// atomic, which closes most of the double-processing window left by the
// read-then-act guard in the answer stage.
func (s *QuestionStore) Finish(ctx context.Context, userID, questionID string, res types.Result) (bool, error) {
	if !types.StatusProcessing.CanTransition(res.Status) {
		return false, fmt.Errorf("finish %s/%s: %q is not a terminal status", userID, questionID, res.Status)
	}
	now := time.Now().UTC()
	update := types.Question{
		Status:         res.Status,
		Answer:         res.Answer,
		Sources:        res.Sources,
		InferenceModel: res.InferenceModel,
		ErrorMessage:   res.ErrorMessage,
	}
	if res.Status == types.StatusCompleted {
		update.ProcessedAt = &now
	}
	tx := s.db.WithContext(ctx).Model(&types.Question{}).
		Where("user_id = ? AND question_id = ? AND status IN ?",
			userID, questionID, []types.Status{types.StatusPending, types.StatusProcessing}).
		Updates(update)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (s *QuestionStore) SetNotificationSent(ctx context.Context, userID, questionID string) error {
	return s.db.WithContext(ctx).Model(&types.Question{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Update("notification_sent", true).Error
}
