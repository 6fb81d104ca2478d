package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// unknownMarker substitutes for missing device metadata so fingerprints stay
// stable and comparable: two logins that both lack a User-Agent must still
// land on the same fingerprint.
const unknownMarker = "unknown"

// Fingerprint derives a device fingerprint from the device description
// (typically the User-Agent) and the client IP.
//
// The fingerprint is a one-way hash used ONLY to group refresh tokens per
// device and drive the device-cap eviction. It never participates in
// authorization decisions — knowing a fingerprint grants nothing.
func Fingerprint(deviceInfo, ipAddress string) string {
	if deviceInfo == "" {
		deviceInfo = unknownMarker
	}
	if ipAddress == "" {
		ipAddress = unknownMarker
	}

	sum := sha256.Sum256([]byte(deviceInfo + "|" + ipAddress))
	return hex.EncodeToString(sum[:])
}
