// repositories/store.go
package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"agent-arena-system/engine"
	"agent-arena-system/models"
)

// ArenaStore is the GORM-backed implementation of the persistence interfaces
// the engine depends on (engine.TournamentStore, engine.AgentStore,
// engine.ChipStore, engine.StatsSource). Services share the same *gorm.DB for
// their own queries; this adapter only exists so the engine stays free of
// database imports.
type ArenaStore struct {
	DB *gorm.DB
}

func NewArenaStore(db *gorm.DB) *ArenaStore {
	return &ArenaStore{DB: db}
}

// compile-time interface checks
var (
	_ engine.TournamentStore = (*ArenaStore)(nil)
	_ engine.AgentStore      = (*ArenaStore)(nil)
	_ engine.ChipStore       = (*ArenaStore)(nil)
	_ engine.StatsSource     = (*ArenaStore)(nil)
)

func (s *ArenaStore) SaveTournament(ctx context.Context, t *models.Tournament) error {
	return s.DB.WithContext(ctx).Save(t).Error
}

func (s *ArenaStore) SaveMatchRecord(ctx context.Context, rec *models.MatchRecord) error {
	return s.DB.WithContext(ctx).Create(rec).Error
}

func (s *ArenaStore) GetScenario(ctx context.Context, id string) (*models.Scenario, error) {
	var scenario models.Scenario
	if err := s.DB.WithContext(ctx).First(&scenario, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *ArenaStore) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var agent models.Agent
	err := s.DB.WithContext(ctx).First(&agent, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *ArenaStore) GetChip(ctx context.Context, id string) (*models.SkillChip, error) {
	var chip models.SkillChip
	if err := s.DB.WithContext(ctx).First(&chip, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chip, nil
}

func (s *ArenaStore) SaveChip(ctx context.Context, chip *models.SkillChip) error {
	return s.DB.WithContext(ctx).Save(chip).Error
}

// Replace consumes both fusion sources and inserts the fused chip in one
// transaction, so the collection never ends up missing both sides.
func (s *ArenaStore) Replace(ctx context.Context, removeA, removeB string, add *models.SkillChip) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []string{removeA, removeB} {
			result := tx.Delete(&models.SkillChip{}, "id = ?", id)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("chip %s vanished during fusion", id)
			}
		}
		return tx.Create(add).Error
	})
}

// UserStats loads the progress row for an owner, creating a fresh one on
// first contact so eligibility checks never fail on missing rows.
func (s *ArenaStore) UserStats(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prog = models.UserProgress{ExternalUserID: externalUserID, Level: 1, Rank: 1}
		if err := s.DB.WithContext(ctx).Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}
