package services

import (
	"fmt"
	"strings"

	"privacyguard-lab/internal/domain/models"
)

const (
	// EmptyPermissionsLine is emitted when the app requests no permissions
	EmptyPermissionsLine = "- This app does not request any permissions"

	maxNormalPermissionsListed = 5
)

var tierHeadlines = map[models.RiskTier]string{
	models.RiskTierSafe:   "Safe",
	models.RiskTierLow:    "Low risk",
	models.RiskTierMedium: "Medium risk",
	models.RiskTierHigh:   "High risk",
}

var tierRecommendations = map[models.RiskTier]string{
	models.RiskTierSafe:   "This app is relatively safe and poses no significant privacy threat",
	models.RiskTierLow:    "Review the granted permissions and make sure the app actually needs them",
	models.RiskTierMedium: "This app holds dangerous permissions - make sure you trust the developer",
	models.RiskTierHigh:   "This app holds high-risk permissions - consider uninstalling it unless it is essential",
}

const (
	advertisingAdvisory = "Contains advertising SDKs - it may collect data to target you with ads"
	trackingAdvisory    = "Contains tracking SDKs - it monitors your activity inside the app"
)

// RenderReport renders a human-readable privacy report for one analyzed app
func RenderReport(appDisplayName string, result models.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Privacy analysis: %s\n\n", appDisplayName)
	fmt.Fprintf(&b, "Overall rating: %s (score %d/100)\n\n", tierHeadline(result.RiskTier), result.SecurityScore)

	b.WriteString("Requested permissions:\n")
	if len(result.Permissions) == 0 {
		b.WriteString(EmptyPermissionsLine + "\n")
	} else {
		var dangerous, normal []models.PermissionRecord
		for _, p := range result.Permissions {
			if p.IsDangerous {
				dangerous = append(dangerous, p)
			} else {
				normal = append(normal, p)
			}
		}

		if len(dangerous) > 0 {
			fmt.Fprintf(&b, "\nDangerous permissions (%d):\n", len(dangerous))
			for _, p := range dangerous {
				writePermissionLine(&b, p)
			}
		}

		if len(normal) > 0 {
			fmt.Fprintf(&b, "\nNormal permissions (%d):\n", len(normal))
			for i, p := range normal {
				if i == maxNormalPermissionsListed {
					break
				}
				writePermissionLine(&b, p)
			}
			if len(normal) > maxNormalPermissionsListed {
				fmt.Fprintf(&b, "... and %d more\n", len(normal)-maxNormalPermissionsListed)
			}
		}
	}

	if len(result.DetectedSDKs) > 0 {
		b.WriteString("\nDetected SDKs:\n")
		for _, s := range result.DetectedSDKs {
			fmt.Fprintf(&b, "* %s: %s\n", s.Name, s.Description)
		}
	}

	b.WriteString("\nRecommendations:\n")
	b.WriteString(tierRecommendation(result.RiskTier) + "\n")
	if result.HasSDKCategory(models.SdkCategoryAdvertising) {
		b.WriteString(advertisingAdvisory + "\n")
	}
	if result.HasSDKCategory(models.SdkCategoryTracking) {
		b.WriteString(trackingAdvisory + "\n")
	}

	return b.String()
}

func writePermissionLine(b *strings.Builder, p models.PermissionRecord) {
	status := "not granted"
	if p.IsGranted {
		status = "granted"
	}
	fmt.Fprintf(b, "* %s: %s [%s]\n", p.DisplayName, p.Explanation, status)
}

func tierHeadline(t models.RiskTier) string {
	if h, ok := tierHeadlines[t]; ok {
		return h
	}
	return string(t)
}

func tierRecommendation(t models.RiskTier) string {
	if r, ok := tierRecommendations[t]; ok {
		return r
	}
	return tierRecommendations[models.RiskTierHigh]
}
