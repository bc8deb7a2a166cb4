package services

import (
	"fmt"
	"math"
	"time"

	"agent-arena-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XPWeights define relative values (tunable via config/env later)
type XPWeights struct {
	MatchXP         int64
	TournamentXP    int64
	TournamentWinXP int64
	ChipXP          int64
	FusionXP        int64
	AgentXP         int64
}

var DefaultXPWeights = XPWeights{
	MatchXP:         10,
	TournamentXP:    100, // 10× match
	TournamentWinXP: 300, // triple for winning
	ChipXP:          5,
	FusionXP:        25,
	AgentXP:         20,
}

// LevelConfig: XP needed for *next* level (e.g., level 1 → 2 needs BaseXPPerLevel * 1^1.2)
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to reach level+1 from current level
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// RankThresholds: levels required before rank-up
var RankThresholds = map[int]int{ // rank → min level
	1: 1,   // Bronze (start)
	2: 10,  // Silver
	3: 25,  // Gold
	4: 50,  // Platinum
	5: 100, // Diamond
}

func determineRank(level int) int {
	for rank := 5; rank >= 1; rank-- {
		if level >= RankThresholds[rank] {
			return rank
		}
	}
	return 1
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// EnsureProgressRecord ensures a UserProgress row exists (idempotent)
func (s *ProgressionService) EnsureProgressRecord(externalUserID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		prog = models.UserProgress{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			TotalXP:        0,
			Level:          1,
			Rank:           1,
		}
		if err := s.DB.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// AwardXP atomically updates XP, level, rank — returns updated progress
func (s *ProgressionService) AwardXP(externalUserID string, xp int64, reason string) (*models.UserProgress, error) {
	var updatedProg *models.UserProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prog models.UserProgress
		if err := tx.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
			return fmt.Errorf("progress record not found for %s", externalUserID)
		}

		oldRank := prog.Rank

		prog.TotalXP += xp

		// Level-up logic: accumulate until enough for next level
		for prog.TotalXP >= int64(BaseXPPerLevel)*int64(prog.Level)+xpForNextLevel(prog.Level) {
			prog.Level++
			now := time.Now()
			prog.LastLevelUpAt = &now
		}

		// Rank-up logic
		newRank := determineRank(prog.Level)
		if newRank > oldRank {
			now := time.Now()
			prog.Rank = newRank
			prog.LastRankUpAt = &now
		}

		if err := tx.Save(&prog).Error; err != nil {
			return err
		}

		// Auto-award achievements
		achSvc := NewAchievementService(s.DB)
		_ = achSvc.AutoAward(externalUserID) // fire-and-forget

		updatedProg = &models.UserProgress{}
		*updatedProg = prog

		fmt.Printf("🎮 XP Awarded: %s → XP=%d, Lvl=%d, Rank=%d (reason: %s)\n",
			externalUserID, prog.TotalXP, prog.Level, prog.Rank, reason)

		return nil
	})
	if err != nil {
		return nil, err
	}
	return updatedProg, nil
}

// counterColumns whitelists the UserProgress counters Bump may touch.
var counterColumns = map[string]bool{
	"agents_created":        true,
	"chips_collected":       true,
	"chips_fused":           true,
	"total_matches":         true,
	"tournaments_played":    true,
	"tournaments_completed": true,
	"tournaments_won":       true,
}

// Bump increments one activity counter, creating the row if needed.
func (s *ProgressionService) Bump(externalUserID, column string, delta int64) error {
	if !counterColumns[column] {
		return fmt.Errorf("unknown progress counter %q", column)
	}
	if _, err := s.EnsureProgressRecord(externalUserID); err != nil {
		return err
	}
	return s.DB.Model(&models.UserProgress{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

// RecordMatchPlayed bumps the match counter and awards XP for each side of a
// finished contest.
func (s *ProgressionService) RecordMatchPlayed(externalUserID string) error {
	if err := s.Bump(externalUserID, "total_matches", 1); err != nil {
		return err
	}
	_, err := s.AwardXP(externalUserID, DefaultXPWeights.MatchXP, "match_played")
	return err
}

// RecordTournamentResult finalizes one participant's tournament: counters,
// placement XP and achievements.
func (s *ProgressionService) RecordTournamentResult(externalUserID, tournamentID string, rank int) error {
	if err := s.Bump(externalUserID, "tournaments_completed", 1); err != nil {
		return err
	}
	xp := DefaultXPWeights.TournamentXP
	if rank == 1 {
		xp = DefaultXPWeights.TournamentWinXP
		if err := s.Bump(externalUserID, "tournaments_won", 1); err != nil {
			return err
		}
	} else if rank <= 3 {
		xp *= 2 // podium
	}
	_, err := s.AwardXP(externalUserID, xp, fmt.Sprintf("tournament_%s_rank_%d", tournamentID, rank))
	return err
}

// GetRecentMatches returns match records in last N days
func (s *ProgressionService) GetRecentMatches(agentIDs []string, days int) ([]models.MatchRecord, error) {
	var records []models.MatchRecord
	since := time.Now().AddDate(0, 0, -days)
	err := s.DB.Where("(agent1_id IN ? OR agent2_id IN ?) AND created_at >= ?", agentIDs, agentIDs, since).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// GetLeaderboard returns the top progress rows ordered by XP.
func (s *ProgressionService) GetLeaderboard(limit int) ([]models.UserProgress, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var rows []models.UserProgress
	err := s.DB.Order("total_xp DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
