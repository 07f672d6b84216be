// internal/models/award.go
package models

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

type AwardLevel string

const (
	AwardGrandGold AwardLevel = "GRAND_GOLD"
	AwardGold      AwardLevel = "GOLD"
	AwardSilver    AwardLevel = "SILVER"
	AwardBronze    AwardLevel = "BRONZE"
	AwardNone      AwardLevel = "NONE"
)

var AllAwardLevels = []AwardLevel{AwardGrandGold, AwardGold, AwardSilver, AwardBronze, AwardNone}

// Lower bounds of the published award bands.
const (
	GrandGoldMinScore = 9.0
	GoldMinScore      = 8.0
	SilverMinScore    = 7.0
	BronzeMinScore    = 6.0
)

var awardAliases = map[string]AwardLevel{
	"GRAND_GOLD":       AwardGrandGold,
	"GRAND_GOLD_AWARD": AwardGrandGold,
	"GOLD":             AwardGold,
	"GOLD_AWARD":       AwardGold,
	"SILVER":           AwardSilver,
	"SILVER_AWARD":     AwardSilver,
	"BRONZE":           AwardBronze,
	"BRONZE_AWARD":     AwardBronze,
	"NONE":             AwardNone,
	"NO_AWARD":         AwardNone,
}

func awardKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '_' }), "_")
}

// ParseAward maps a display string or enum token onto the award enum and
// fails for anything else.
func ParseAward(s string) (AwardLevel, error) {
	if level, ok := awardAliases[awardKey(s)]; ok {
		return level, nil
	}
	return "", fmt.Errorf("unknown award level %q", s)
}

// NormalizeAward is the lenient form of ParseAward: unrecognized input maps to
// AwardNone and is logged so data-entry mistakes remain visible.
func NormalizeAward(s string) AwardLevel {
	if strings.TrimSpace(s) == "" {
		return AwardNone
	}
	level, err := ParseAward(s)
	if err != nil {
		logrus.WithField("input", s).Warn("Unrecognized award level, defaulting to NONE")
		return AwardNone
	}
	return level
}

func (a AwardLevel) Valid() bool {
	switch a {
	case AwardGrandGold, AwardGold, AwardSilver, AwardBronze, AwardNone:
		return true
	}
	return false
}

// Certifiable reports whether a certificate can carry this level.
func (a AwardLevel) Certifiable() bool {
	return a.Valid() && a != AwardNone
}

func (a AwardLevel) Label() string {
	switch a {
	case AwardGrandGold:
		return "Grand Gold Award"
	case AwardGold:
		return "Gold Award"
	case AwardSilver:
		return "Silver Award"
	case AwardBronze:
		return "Bronze Award"
	case AwardNone:
		return "No Award"
	}
	return string(a)
}

// SuggestedAward returns the award band a score falls into.
func SuggestedAward(score float64) AwardLevel {
	switch {
	case score >= GrandGoldMinScore:
		return AwardGrandGold
	case score >= GoldMinScore:
		return AwardGold
	case score >= SilverMinScore:
		return AwardSilver
	case score >= BronzeMinScore:
		return AwardBronze
	default:
		return AwardNone
	}
}
