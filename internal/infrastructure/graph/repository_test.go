package graph

import (
	"testing"

	"privacyguard-lab/internal/domain/models"
)

func TestSDKParams(t *testing.T) {
	params := sdkParams([]models.SdkDescriptor{
		{Name: "Google AdMob", Category: models.SdkCategoryAdvertising, Description: "ads"},
		{Name: "Adjust", Category: models.SdkCategoryTracking},
	})
	if len(params) != 2 {
		t.Fatalf("len = %d", len(params))
	}
	first, ok := params[0].(map[string]any)
	if !ok {
		t.Fatalf("param type = %T", params[0])
	}
	if first["name"] != "Google AdMob" || first["category"] != "advertising" || first["description"] != "ads" {
		t.Errorf("first = %v", first)
	}
	if len(sdkParams(nil)) != 0 {
		t.Error("nil sdks should yield no params")
	}
}
