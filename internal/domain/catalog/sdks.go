package catalog

import "privacyguard-lab/internal/domain/models"

// SdkFingerprint maps a case-insensitive substring pattern to the SDK it identifies
type SdkFingerprint struct {
	Pattern string               `json:"pattern"`
	SDK     models.SdkDescriptor `json:"sdk"`
}

func sdk(pattern, name string, category models.SdkCategory, description string) SdkFingerprint {
	return SdkFingerprint{
		Pattern: pattern,
		SDK:     models.SdkDescriptor{Name: name, Category: category, Description: description},
	}
}

// Order matters: more specific patterns precede the broader ones they overlap
// with, and the first entry with a given name wins during detection.
var sdkFingerprints = []SdkFingerprint{
	// Analytics
	sdk("com.google.firebase.analytics", "Firebase Analytics", models.SdkCategoryAnalytics, "Collects usage data and sends it to Google"),
	sdk("com.google.android.gms.analytics", "Google Analytics", models.SdkCategoryAnalytics, "Tracks user behaviour inside the app"),
	sdk("com.mixpanel.android", "Mixpanel", models.SdkCategoryAnalytics, "Advanced event tracking analytics"),
	sdk("com.amplitude.api", "Amplitude", models.SdkCategoryAnalytics, "Product analytics platform"),
	sdk("com.flurry.android", "Flurry Analytics", models.SdkCategoryAnalytics, "Yahoo app analytics"),
	sdk("com.appsflyer", "AppsFlyer", models.SdkCategoryAnalytics, "Marketing analytics and install attribution"),

	// Advertising
	sdk("com.google.android.gms.ads", "Google AdMob", models.SdkCategoryAdvertising, "Shows ads and collects data for targeting"),
	sdk("com.facebook.ads", "Facebook Audience Network", models.SdkCategoryAdvertising, "Embedded Facebook advertising"),
	sdk("com.unity3d.ads", "Unity Ads", models.SdkCategoryAdvertising, "Unity advertising platform for games"),
	sdk("com.chartboost.sdk", "Chartboost", models.SdkCategoryAdvertising, "Advertising network for games"),
	sdk("com.adcolony.sdk", "AdColony", models.SdkCategoryAdvertising, "High quality video advertising"),
	sdk("com.vungle.warren", "Vungle", models.SdkCategoryAdvertising, "Video advertising for apps"),
	sdk("com.applovin.sdk", "AppLovin", models.SdkCategoryAdvertising, "Ad monetization platform"),
	sdk("com.mopub.mobileads", "MoPub", models.SdkCategoryAdvertising, "Twitter advertising platform"),
	sdk("com.inmobi.ads", "InMobi", models.SdkCategoryAdvertising, "Global advertising network"),
	sdk("com.startapp.android", "StartApp", models.SdkCategoryAdvertising, "Advertising and monetization"),

	// Social
	sdk("com.facebook.sdk", "Facebook SDK", models.SdkCategorySocial, "Facebook integration and data sharing"),
	sdk("com.facebook.login", "Facebook Login", models.SdkCategorySocial, "Sign in with Facebook"),
	sdk("com.facebook.share", "Facebook Share", models.SdkCategorySocial, "Share content to Facebook"),
	sdk("com.twitter.sdk", "Twitter SDK", models.SdkCategorySocial, "Twitter integration"),
	sdk("com.snapchat.sdk", "Snapchat SDK", models.SdkCategorySocial, "Snapchat integration"),
	sdk("com.linkedin.android", "LinkedIn SDK", models.SdkCategorySocial, "LinkedIn integration"),
	sdk("com.instagram.android", "Instagram SDK", models.SdkCategorySocial, "Instagram integration"),
	sdk("com.whatsapp", "WhatsApp SDK", models.SdkCategorySocial, "Share via WhatsApp"),
	sdk("com.telegram", "Telegram SDK", models.SdkCategorySocial, "Telegram integration"),

	// Payment
	sdk("com.android.billingclient", "Google Play Billing", models.SdkCategoryPayment, "In-app purchases"),
	sdk("com.paypal.android", "PayPal SDK", models.SdkCategoryPayment, "PayPal payments"),
	sdk("com.stripe.android", "Stripe SDK", models.SdkCategoryPayment, "Payment processing"),
	sdk("com.braintreepayments", "Braintree", models.SdkCategoryPayment, "PayPal payment gateway"),
	sdk("com.squareup.sdk", "Square SDK", models.SdkCategoryPayment, "Square payments"),

	// Tracking
	sdk("com.adjust.sdk", "Adjust", models.SdkCategoryTracking, "Attribution and fraud tracking"),
	sdk("com.kochava.base", "Kochava", models.SdkCategoryTracking, "Marketing and attribution tracking"),
	sdk("com.tune.ma", "Tune", models.SdkCategoryTracking, "Mobile marketing analytics"),
	sdk("com.localytics.android", "Localytics", models.SdkCategoryTracking, "App tracking and analytics"),
	sdk("com.bugsnag.android", "Bugsnag", models.SdkCategoryTracking, "Error and crash tracking"),
	sdk("com.crashlytics.android", "Crashlytics", models.SdkCategoryTracking, "Firebase crash reporting"),
	sdk("com.google.firebase.crashlytics", "Firebase Crashlytics", models.SdkCategoryTracking, "App crash tracking"),

	// Platform
	sdk("com.google.firebase", "Firebase SDK", models.SdkCategoryOther, "Integrated Google services"),
	sdk("com.google.android.gms", "Google Play Services", models.SdkCategoryOther, "Core Google Play services"),
	sdk("com.google.android.play", "Google Play Core", models.SdkCategoryOther, "Google Play core library"),

	// Maps
	sdk("com.google.android.gms.maps", "Google Maps", models.SdkCategoryOther, "Embedded Google Maps"),
	sdk("com.mapbox.mapboxsdk", "Mapbox", models.SdkCategoryOther, "Custom Mapbox maps"),

	// Push notifications and backend
	sdk("com.google.firebase.messaging", "Firebase Cloud Messaging", models.SdkCategoryOther, "Firebase push notifications"),
	sdk("com.onesignal", "OneSignal", models.SdkCategoryOther, "Push notification platform"),
	sdk("com.parse", "Parse SDK", models.SdkCategoryOther, "Backend as a service platform"),

	// Storage and networking
	sdk("io.realm", "Realm", models.SdkCategoryOther, "Local database"),
	sdk("com.squareup.okhttp", "OkHttp", models.SdkCategoryOther, "HTTP client library"),
	sdk("com.squareup.retrofit", "Retrofit", models.SdkCategoryOther, "HTTP library for REST APIs"),
	sdk("com.google.gson", "Gson", models.SdkCategoryOther, "JSON serialization library"),

	// Image loading
	sdk("com.bumptech.glide", "Glide", models.SdkCategoryOther, "Image loading and display"),
	sdk("com.squareup.picasso", "Picasso", models.SdkCategoryOther, "Image loading library"),
	sdk("com.facebook.fresco", "Fresco", models.SdkCategoryOther, "Facebook image management"),

	// Authentication
	sdk("com.google.android.gms.auth", "Google Sign-In", models.SdkCategorySocial, "Sign in with Google"),
	sdk("com.firebaseui", "Firebase UI", models.SdkCategoryOther, "Firebase authentication UI"),
}

// SdkFingerprints returns a copy of the fingerprint table in catalog order
func SdkFingerprints() []SdkFingerprint {
	out := make([]SdkFingerprint, len(sdkFingerprints))
	copy(out, sdkFingerprints)
	return out
}

// SdkCatalog returns every distinct SDK descriptor in catalog order
func SdkCatalog() []models.SdkDescriptor {
	seen := make(map[string]bool, len(sdkFingerprints))
	out := make([]models.SdkDescriptor, 0, len(sdkFingerprints))
	for _, fp := range sdkFingerprints {
		if seen[fp.SDK.Name] {
			continue
		}
		seen[fp.SDK.Name] = true
		out = append(out, fp.SDK)
	}
	return out
}

// LookupSDK returns the descriptor registered under name
func LookupSDK(name string) (models.SdkDescriptor, bool) {
	for _, fp := range sdkFingerprints {
		if fp.SDK.Name == name {
			return fp.SDK, true
		}
	}
	return models.SdkDescriptor{}, false
}
