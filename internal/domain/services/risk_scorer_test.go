package services

import (
	"reflect"
	"strings"
	"testing"

	"privacyguard-lab/internal/domain/catalog"
	"privacyguard-lab/internal/domain/models"
)

func grants(ids ...string) []models.PermissionGrant {
	out := make([]models.PermissionGrant, len(ids))
	for i, id := range ids {
		out[i] = models.PermissionGrant{Identifier: id, Granted: true}
	}
	return out
}

func dangerousRecord(weight int) models.PermissionRecord {
	return models.PermissionRecord{Identifier: "x", IsDangerous: true, RiskWeight: weight}
}

func TestScoreEmptyApp(t *testing.T) {
	res := Analyze(models.AppSnapshot{Identifier: "com.example.empty"})

	if res.SecurityScore != 100 {
		t.Errorf("score = %d, want 100", res.SecurityScore)
	}
	if res.RiskTier != models.RiskTierSafe {
		t.Errorf("tier = %s, want safe", res.RiskTier)
	}
	if len(res.DetectedSDKs) != 0 {
		t.Errorf("unexpected sdks: %v", res.DetectedSDKs)
	}
}

func TestScoreBackgroundLocation(t *testing.T) {
	tests := []struct {
		name      string
		perms     []string
		wantScore int
		wantTier  models.RiskTier
	}{
		{
			name:      "alone earns the few-permissions bonus",
			perms:     []string{"android.permission.ACCESS_BACKGROUND_LOCATION"},
			wantScore: 80,
			wantTier:  models.RiskTierSafe,
		},
		{
			name: "alongside four normal permissions",
			perms: []string{
				"android.permission.ACCESS_BACKGROUND_LOCATION",
				"android.permission.INTERNET",
				"android.permission.ACCESS_NETWORK_STATE",
				"android.permission.VIBRATE",
				"android.permission.WAKE_LOCK",
			},
			wantScore: 70,
			wantTier:  models.RiskTierLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Analyze(models.AppSnapshot{
				Identifier:           "com.example.tracker",
				RequestedPermissions: grants(tt.perms...),
			})
			if res.SecurityScore != tt.wantScore {
				t.Errorf("score = %d, want %d", res.SecurityScore, tt.wantScore)
			}
			if res.RiskTier != tt.wantTier {
				t.Errorf("tier = %s, want %s", res.RiskTier, tt.wantTier)
			}
		})
	}
}

func TestScoreSixHeavyPermissionsSystemApp(t *testing.T) {
	perms := make([]models.PermissionRecord, 6)
	for i := range perms {
		perms[i] = dangerousRecord(90)
	}

	score, tier := ScoreRisk(perms, nil, true)
	if score != 0 {
		t.Errorf("score = %d, want 0", score)
	}
	// MEDIUM is reachable at score 0 because its rule is a disjunction
	if tier != models.RiskTierMedium {
		t.Errorf("tier = %s, want medium", tier)
	}
}

func TestScoreAdvertisingSDK(t *testing.T) {
	res := Analyze(models.AppSnapshot{Identifier: "com.google.android.gms.ads.sample"})

	var found bool
	for _, s := range res.DetectedSDKs {
		if s.Name == "Google AdMob" {
			found = true
			if s.Category != models.SdkCategoryAdvertising {
				t.Errorf("AdMob category = %s", s.Category)
			}
		}
	}
	if !found {
		t.Fatalf("Google AdMob not detected: %v", res.DetectedSDKs)
	}
	if p := SdkPenalty([]models.SdkDescriptor{{Name: "Google AdMob", Category: models.SdkCategoryAdvertising}}); p != 15 {
		t.Errorf("advertising penalty = %d, want 15", p)
	}
}

func TestClassifyTierOrder(t *testing.T) {
	tests := []struct {
		score, dangerous int
		want             models.RiskTier
	}{
		{100, 0, models.RiskTierSafe},
		{80, 2, models.RiskTierSafe},
		{80, 3, models.RiskTierLow},
		{79, 0, models.RiskTierLow},
		{60, 4, models.RiskTierLow},
		{60, 5, models.RiskTierMedium},
		{59, 0, models.RiskTierMedium},
		{40, 20, models.RiskTierMedium},
		{0, 6, models.RiskTierMedium},
		{39, 7, models.RiskTierHigh},
		{0, 30, models.RiskTierHigh},
	}
	for _, tt := range tests {
		if got := ClassifyTier(tt.score, tt.dangerous); got != tt.want {
			t.Errorf("ClassifyTier(%d, %d) = %s, want %s", tt.score, tt.dangerous, got, tt.want)
		}
	}
}

func TestSdkPenaltyCapped(t *testing.T) {
	sdks := make([]models.SdkDescriptor, 10)
	for i := range sdks {
		sdks[i] = models.SdkDescriptor{Name: string(rune('a' + i)), Category: models.SdkCategoryTracking}
	}
	if p := SdkPenalty(sdks); p != 100 {
		t.Errorf("penalty = %d, want 100", p)
	}
	if p := SdkPenalty(nil); p != 0 {
		t.Errorf("empty penalty = %d", p)
	}
}

func TestScoreFloorsDeduction(t *testing.T) {
	// floor(55*0.3) = 16, bonus +10 for fewer than five permissions
	score, _ := ScoreRisk([]models.PermissionRecord{dangerousRecord(55)}, nil, false)
	if score != 94 {
		t.Errorf("score = %d, want 94", score)
	}
}

func TestScoreNormalPermissionsIgnored(t *testing.T) {
	perms := []models.PermissionRecord{
		{Identifier: "a", RiskWeight: 100},
		{Identifier: "b", RiskWeight: 100},
		{Identifier: "c", RiskWeight: 100},
		{Identifier: "d", RiskWeight: 100},
		{Identifier: "e", RiskWeight: 100},
	}
	score, tier := ScoreRisk(perms, nil, false)
	if score != 100 || tier != models.RiskTierSafe {
		t.Errorf("got %d/%s, want 100/safe", score, tier)
	}
}

func TestScoreBounds(t *testing.T) {
	allIDs := make([]string, 0)
	for _, p := range catalog.Permissions() {
		allIDs = append(allIDs, p.Identifier)
	}

	snapshots := []models.AppSnapshot{
		{Identifier: ""},
		{Identifier: "com.facebook.ads.adjust.sdk.com.kochava.base", IsSystemApp: true, RequestedPermissions: grants(allIDs...)},
		{Identifier: "x", RequestedPermissions: grants("a.B", "c.D", "e.F")},
		{Identifier: "com.whatsapp", EmbeddedNames: []string{"com.stripe.android", "io.realm"}},
	}
	for _, s := range snapshots {
		res := Analyze(s)
		if res.SecurityScore < 0 || res.SecurityScore > 100 {
			t.Errorf("%q: score %d out of bounds", s.Identifier, res.SecurityScore)
		}
		for _, p := range res.Permissions {
			if p.RiskWeight < 0 || p.RiskWeight > 100 {
				t.Errorf("%q: weight %d out of bounds", p.Identifier, p.RiskWeight)
			}
		}
	}
}

func TestScoreMonotonicInDangerousPermissions(t *testing.T) {
	ids := catalog.DangerousPermissions()
	base := models.AppSnapshot{Identifier: "com.example.grow"}
	prev := Analyze(base).SecurityScore

	for _, id := range ids {
		base.RequestedPermissions = append(base.RequestedPermissions, models.PermissionGrant{Identifier: id})
		score := Analyze(base).SecurityScore
		if score > prev {
			t.Fatalf("adding %s raised score from %d to %d", id, prev, score)
		}
		prev = score
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	s := models.AppSnapshot{
		Identifier:           "com.appsflyer.demo",
		RequestedPermissions: grants("android.permission.CAMERA", "android.permission.INTERNET", "vendor.CUSTOM"),
		EmbeddedNames:        []string{"com.google.firebase.analytics.Events", "com.bumptech.glide.Glide"},
	}
	first := Analyze(s)
	second := Analyze(s)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("analyze not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzePreservesPermissionOrder(t *testing.T) {
	ids := []string{"android.permission.VIBRATE", "android.permission.CAMERA", "z.UNKNOWN", "android.permission.INTERNET"}
	res := Analyze(models.AppSnapshot{Identifier: "a", RequestedPermissions: grants(ids...)})
	for i, p := range res.Permissions {
		if p.Identifier != ids[i] {
			t.Errorf("position %d = %s, want %s", i, p.Identifier, ids[i])
		}
	}
	if res.DangerousCount() != 2 || res.NormalCount() != 2 {
		t.Errorf("dangerous/normal = %d/%d", res.DangerousCount(), res.NormalCount())
	}
}

func TestDetectSDKsDedupAndOrder(t *testing.T) {
	// Both crashlytics patterns and the broad firebase / gms patterns overlap here
	sdks := DetectSDKs("COM.GOOGLE.FIREBASE.CRASHLYTICS", []string{
		"com.crashlytics.android.Core",
		"com.google.android.gms.ads.AdView",
		"com.google.android.gms.ads.AdRequest",
		"com.mixpanel.android.mpmetrics",
	})

	seen := make(map[string]bool)
	for _, s := range sdks {
		if seen[s.Name] {
			t.Errorf("duplicate sdk %q", s.Name)
		}
		seen[s.Name] = true
	}
	for _, want := range []string{"Firebase Crashlytics", "Crashlytics", "Google AdMob", "Mixpanel", "Firebase SDK", "Google Play Services"} {
		if !seen[want] {
			t.Errorf("missing %q in %v", want, sdks)
		}
	}

	for i := 1; i < len(sdks); i++ {
		if sdks[i-1].Category.Ordinal() > sdks[i].Category.Ordinal() {
			t.Fatalf("not category-sorted: %v", sdks)
		}
	}
	// stable within a category: catalog order
	if sdks[0].Name != "Mixpanel" {
		t.Errorf("first sdk = %q, want Mixpanel", sdks[0].Name)
	}
}

func TestDetectSDKsNoMatch(t *testing.T) {
	sdks := DetectSDKs("org.example.plain", nil)
	if sdks == nil || len(sdks) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", sdks)
	}
}

func TestRenderReportEmptyPermissions(t *testing.T) {
	res := Analyze(models.AppSnapshot{Identifier: "com.example.empty"})
	out := RenderReport("Empty", res)

	if !strings.Contains(out, EmptyPermissionsLine) {
		t.Errorf("missing empty-permissions line:\n%s", out)
	}
	if strings.Contains(out, "Dangerous permissions") || strings.Contains(out, "Normal permissions") {
		t.Errorf("unexpected permission sections:\n%s", out)
	}
	if !strings.Contains(out, tierRecommendations[models.RiskTierSafe]) {
		t.Errorf("missing safe recommendation:\n%s", out)
	}
}

func TestRenderReportSections(t *testing.T) {
	ids := []string{
		"android.permission.CAMERA",
		"android.permission.INTERNET",
		"android.permission.ACCESS_NETWORK_STATE",
		"android.permission.ACCESS_WIFI_STATE",
		"android.permission.VIBRATE",
		"android.permission.WAKE_LOCK",
		"android.permission.BLUETOOTH",
		"android.permission.FOREGROUND_SERVICE",
	}
	res := Analyze(models.AppSnapshot{
		Identifier:           "com.example.game",
		RequestedPermissions: grants(ids...),
		EmbeddedNames:        []string{"com.unity3d.ads.UnityAds", "com.adjust.sdk.Adjust"},
	})
	out := RenderReport("Game", res)

	for _, want := range []string{
		"Privacy analysis: Game",
		"Dangerous permissions (1):",
		"Normal permissions (7):",
		"... and 2 more",
		"Detected SDKs:",
		"* Unity Ads: ",
		advertisingAdvisory,
		trackingAdvisory,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Foreground service") {
		t.Errorf("sixth normal permission should be truncated:\n%s", out)
	}

	rec := strings.Index(out, "Recommendations:")
	if rec < 0 || strings.Index(out, advertisingAdvisory) < rec || strings.Index(out, trackingAdvisory) < strings.Index(out, advertisingAdvisory) {
		t.Errorf("advisories out of order:\n%s", out)
	}
}

func TestRenderReportNoAdvisoriesWithoutSDKs(t *testing.T) {
	res := Analyze(models.AppSnapshot{Identifier: "org.plain", RequestedPermissions: grants("android.permission.CAMERA")})
	out := RenderReport("Plain", res)
	if strings.Contains(out, advertisingAdvisory) || strings.Contains(out, trackingAdvisory) {
		t.Errorf("unexpected advisory:\n%s", out)
	}
	if strings.Contains(out, "Detected SDKs") {
		t.Errorf("unexpected sdk section:\n%s", out)
	}
}
