package services

import "privacyguard-lab/internal/domain/models"

const (
	baseSecurityScore    = 100
	maxSDKPenalty        = 100
	systemAppPenalty     = 10
	fewPermissionsBonus  = 10
	fewPermissionsCutoff = 5
	minSecurityScore     = 0
	maxSecurityScore     = 100
)

// sdkCategoryWeights is the per-SDK score penalty by category
var sdkCategoryWeights = map[models.SdkCategory]int{
	models.SdkCategoryAdvertising: 15,
	models.SdkCategoryTracking:    20,
	models.SdkCategoryAnalytics:   10,
	models.SdkCategorySocial:      10,
	models.SdkCategoryPayment:     5,
	models.SdkCategoryOther:       2,
}

// SdkPenalty sums the category weights of sdks, capped at 100
func SdkPenalty(sdks []models.SdkDescriptor) int {
	total := 0
	for _, s := range sdks {
		total += sdkCategoryWeights[s.Category]
	}
	if total > maxSDKPenalty {
		return maxSDKPenalty
	}
	return total
}

// ScoreRisk computes the security score (higher is safer) and risk tier
func ScoreRisk(perms []models.PermissionRecord, sdks []models.SdkDescriptor, isSystemApp bool) (int, models.RiskTier) {
	score := baseSecurityScore
	dangerous := 0

	for _, p := range perms {
		if !p.IsDangerous {
			continue
		}
		dangerous++
		// floor(weight * 0.3) in integer arithmetic
		score -= p.RiskWeight * 3 / 10
	}

	score -= SdkPenalty(sdks)

	if isSystemApp {
		score -= systemAppPenalty
	}
	if len(perms) < fewPermissionsCutoff {
		score += fewPermissionsBonus
	}

	score = clampScore(score)
	return score, ClassifyTier(score, dangerous)
}

type tierRule struct {
	tier    models.RiskTier
	matches func(score, dangerous int) bool
}

// Evaluated in order, first match wins. The MEDIUM rule is a disjunction,
// unlike its neighbours, so a score of 0 with six dangerous permissions is
// still MEDIUM.
var tierRules = []tierRule{
	{models.RiskTierSafe, func(s, d int) bool { return s >= 80 && d <= 2 }},
	{models.RiskTierLow, func(s, d int) bool { return s >= 60 && d <= 4 }},
	{models.RiskTierMedium, func(s, d int) bool { return s >= 40 || d <= 6 }},
}

// ClassifyTier maps a score and dangerous-permission count to a tier
func ClassifyTier(score, dangerousCount int) models.RiskTier {
	for _, r := range tierRules {
		if r.matches(score, dangerousCount) {
			return r.tier
		}
	}
	return models.RiskTierHigh
}

func clampScore(score int) int {
	if score < minSecurityScore {
		return minSecurityScore
	}
	if score > maxSecurityScore {
		return maxSecurityScore
	}
	return score
}
