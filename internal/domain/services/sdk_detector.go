package services

import (
	"sort"
	"strings"

	"privacyguard-lab/internal/domain/catalog"
	"privacyguard-lab/internal/domain/models"
)

// DetectSDKs matches the fingerprint catalog against the app identifier and any
// embedded class or library names. This is a heuristic: without embedded names
// only the identifier itself is searched.
func DetectSDKs(appIdentifier string, embeddedNames []string) []models.SdkDescriptor {
	haystacks := make([]string, 0, len(embeddedNames)+1)
	haystacks = append(haystacks, strings.ToLower(appIdentifier))
	for _, name := range embeddedNames {
		haystacks = append(haystacks, strings.ToLower(name))
	}

	detected := make([]models.SdkDescriptor, 0)
	seen := make(map[string]bool)

	for _, fp := range catalog.SdkFingerprints() {
		if seen[fp.SDK.Name] {
			continue
		}
		pattern := strings.ToLower(fp.Pattern)
		for _, h := range haystacks {
			if strings.Contains(h, pattern) {
				detected = append(detected, fp.SDK)
				seen[fp.SDK.Name] = true
				break
			}
		}
	}

	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].Category.Ordinal() < detected[j].Category.Ordinal()
	})

	return detected
}
