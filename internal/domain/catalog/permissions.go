// Package catalog holds the static reference tables the risk engine classifies
// against. The tables are built once at package init and never mutated, so
// concurrent readers need no locking.
package catalog

import (
	"sort"
	"strings"

	"privacyguard-lab/internal/domain/models"
)

const (
	// UnknownPermissionWeight is assigned to permissions missing from the catalog
	UnknownPermissionWeight = 50

	// UnknownPermissionExplanation is used for permissions missing from the catalog
	UnknownPermissionExplanation = "Unrecognized permission - verify the app's origin before granting it"
)

// PermissionInfo is the catalog metadata for one platform permission
type PermissionInfo struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
	Explanation string `json:"explanation"`
	IsDangerous bool   `json:"is_dangerous"`
	RiskWeight  int    `json:"risk_weight"` // 0-100, higher is riskier
}

const androidPermission = "android.permission."

var permissionCatalog = buildPermissionCatalog([]PermissionInfo{
	// Dangerous permissions
	{androidPermission + "CAMERA", "Camera", "The app can use the camera to take photos and record video at any time", true, 85},
	{androidPermission + "RECORD_AUDIO", "Microphone", "The app can record audio and listen to your surroundings", true, 90},
	{androidPermission + "ACCESS_FINE_LOCATION", "Precise location", "The app can track your geographic position with high (GPS) accuracy", true, 95},
	{androidPermission + "ACCESS_COARSE_LOCATION", "Approximate location", "The app can learn your approximate location from the network", true, 70},
	{androidPermission + "ACCESS_BACKGROUND_LOCATION", "Background location", "The app can track your location even when you are not using it", true, 100},
	{androidPermission + "READ_CONTACTS", "Read contacts", "The app can access every phone number, name and email address in your contacts", true, 80},
	{androidPermission + "WRITE_CONTACTS", "Modify contacts", "The app can modify or delete your contacts", true, 75},
	{androidPermission + "READ_CALL_LOG", "Read call log", "The app can see every incoming and outgoing call", true, 85},
	{androidPermission + "WRITE_CALL_LOG", "Modify call log", "The app can delete entries from your call log", true, 70},
	{androidPermission + "READ_PHONE_STATE", "Phone state", "The app can learn your phone number, network state and ongoing calls", true, 60},
	{androidPermission + "CALL_PHONE", "Place calls", "The app can place phone calls without your involvement", true, 80},
	{androidPermission + "READ_SMS", "Read messages", "The app can read all of your text messages", true, 90},
	{androidPermission + "SEND_SMS", "Send messages", "The app can send text messages that may cost you money", true, 85},
	{androidPermission + "RECEIVE_SMS", "Receive messages", "The app can intercept incoming text messages", true, 75},
	{androidPermission + "READ_EXTERNAL_STORAGE", "Read storage", "The app can access all of your files, photos and videos", true, 70},
	{androidPermission + "WRITE_EXTERNAL_STORAGE", "Write storage", "The app can modify or delete your files", true, 65},
	{androidPermission + "READ_CALENDAR", "Read calendar", "The app can see your appointments and personal events", true, 50},
	{androidPermission + "WRITE_CALENDAR", "Modify calendar", "The app can add or remove events from your calendar", true, 45},
	{androidPermission + "READ_PHONE_NUMBERS", "Read phone numbers", "The app can learn the phone numbers of this device", true, 55},
	{androidPermission + "ANSWER_PHONE_CALLS", "Answer calls", "The app can answer or end phone calls", true, 75},
	{androidPermission + "ADD_VOICEMAIL", "Add voicemail", "The app can add voicemail messages", true, 40},
	{androidPermission + "USE_SIP", "Use SIP", "The app can place calls over the internet", true, 50},
	{androidPermission + "BODY_SENSORS", "Body sensors", "The app can access health and fitness sensor data", true, 60},
	{androidPermission + "ACTIVITY_RECOGNITION", "Activity recognition", "The app can tell whether you are walking, cycling or driving", true, 55},

	// Normal permissions
	{androidPermission + "INTERNET", "Internet", "Network access - a normal permission required by most apps", false, 10},
	{androidPermission + "ACCESS_NETWORK_STATE", "Network state", "Know whether the device is connected to the internet", false, 5},
	{androidPermission + "ACCESS_WIFI_STATE", "Wi-Fi state", "Know the state of the Wi-Fi connection", false, 5},
	{androidPermission + "BLUETOOTH", "Bluetooth", "Access Bluetooth connections", false, 15},
	{androidPermission + "BLUETOOTH_ADMIN", "Bluetooth admin", "Manage Bluetooth settings", false, 15},
	{androidPermission + "RECEIVE_BOOT_COMPLETED", "Run at startup", "Start automatically when the device boots", false, 20},
	{androidPermission + "VIBRATE", "Vibration", "Control the device vibrator", false, 0},
	{androidPermission + "WAKE_LOCK", "Keep awake", "Prevent the device from going to sleep", false, 10},
	{androidPermission + "FOREGROUND_SERVICE", "Foreground service", "Run a service in the foreground", false, 15},
	{androidPermission + "REQUEST_INSTALL_PACKAGES", "Install apps", "The app can request to install other apps", false, 40},

	// Media, notification and special-access permissions
	{androidPermission + "READ_MEDIA_IMAGES", "Read images", "The app can read every photo stored on the device", true, 65},
	{androidPermission + "READ_MEDIA_VIDEO", "Read videos", "The app can read every video stored on the device", true, 65},
	{androidPermission + "READ_MEDIA_AUDIO", "Read audio", "The app can read audio files stored on the device", true, 50},
	{androidPermission + "PROCESS_OUTGOING_CALLS", "Outgoing calls", "The app can see and redirect the numbers you dial", true, 80},
	{androidPermission + "POST_NOTIFICATIONS", "Notifications", "Show notifications", false, 5},
	{androidPermission + "QUERY_ALL_PACKAGES", "List installed apps", "The app can see every app installed on the device", false, 35},
	{androidPermission + "SYSTEM_ALERT_WINDOW", "Draw over apps", "The app can draw on top of other apps and capture what you tap", true, 80},
	{androidPermission + "BIND_ACCESSIBILITY_SERVICE", "Accessibility service", "The app can read screen content and act on your behalf", true, 95},
	{androidPermission + "BIND_DEVICE_ADMIN", "Device admin", "The app can lock, wipe or control the device", true, 95},
})

func buildPermissionCatalog(entries []PermissionInfo) map[string]PermissionInfo {
	m := make(map[string]PermissionInfo, len(entries))
	for _, e := range entries {
		e.RiskWeight = clampWeight(e.RiskWeight)
		m[e.Identifier] = e
	}
	return m
}

// Classify maps a raw (identifier, granted) pair to a PermissionRecord.
// Unknown identifiers are treated as dangerous with a mid-range weight.
func Classify(identifier string, granted bool) models.PermissionRecord {
	if info, ok := permissionCatalog[identifier]; ok {
		return models.PermissionRecord{
			Identifier:  identifier,
			IsDangerous: info.IsDangerous,
			IsGranted:   granted,
			RiskWeight:  info.RiskWeight,
			DisplayName: info.DisplayName,
			Explanation: info.Explanation,
		}
	}

	return models.PermissionRecord{
		Identifier:  identifier,
		IsDangerous: true,
		IsGranted:   granted,
		RiskWeight:  UnknownPermissionWeight,
		DisplayName: trailingSegment(identifier),
		Explanation: UnknownPermissionExplanation,
	}
}

// ClassifyAll classifies grants preserving their order
func ClassifyAll(grants []models.PermissionGrant) []models.PermissionRecord {
	records := make([]models.PermissionRecord, len(grants))
	for i, g := range grants {
		records[i] = Classify(g.Identifier, g.Granted)
	}
	return records
}

// LookupPermission returns the catalog entry for identifier
func LookupPermission(identifier string) (PermissionInfo, bool) {
	info, ok := permissionCatalog[identifier]
	return info, ok
}

// IsDangerousPermission reports the danger flag; unknown permissions are dangerous
func IsDangerousPermission(identifier string) bool {
	if info, ok := permissionCatalog[identifier]; ok {
		return info.IsDangerous
	}
	return true
}

// PermissionRiskWeight returns the catalog weight or UnknownPermissionWeight
func PermissionRiskWeight(identifier string) int {
	if info, ok := permissionCatalog[identifier]; ok {
		return info.RiskWeight
	}
	return UnknownPermissionWeight
}

// DangerousPermissions returns the sorted identifiers flagged dangerous
func DangerousPermissions() []string {
	out := make([]string, 0, len(permissionCatalog))
	for id, info := range permissionCatalog {
		if info.IsDangerous {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Permissions returns every catalog entry sorted by identifier
func Permissions() []PermissionInfo {
	out := make([]PermissionInfo, 0, len(permissionCatalog))
	for _, info := range permissionCatalog {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// trailingSegment returns the text after the last '.'; the whole string if there is none
func trailingSegment(identifier string) string {
	if i := strings.LastIndex(identifier, "."); i >= 0 {
		return identifier[i+1:]
	}
	return identifier
}

func clampWeight(w int) int {
	if w < 0 {
		return 0
	}
	if w > 100 {
		return 100
	}
	return w
}
