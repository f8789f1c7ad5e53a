package services

import (
	"privacyguard-lab/internal/domain/catalog"
	"privacyguard-lab/internal/domain/models"
)

// Analyze classifies every requested permission, detects embedded SDKs and
// scores the app. It performs no I/O and is safe for concurrent use.
func Analyze(snapshot models.AppSnapshot) models.AnalysisResult {
	perms := catalog.ClassifyAll(snapshot.RequestedPermissions)
	sdks := DetectSDKs(snapshot.Identifier, snapshot.EmbeddedNames)
	score, tier := ScoreRisk(perms, sdks, snapshot.IsSystemApp)

	return models.AnalysisResult{
		Permissions:   perms,
		DetectedSDKs:  sdks,
		SecurityScore: score,
		RiskTier:      tier,
	}
}
