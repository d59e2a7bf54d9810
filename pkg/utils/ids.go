package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identifier generation. Human operators read these ids off handheld screens
// and SAP postings, so they keep the legible TKN-/MS-/SAP- shapes but carry a
// random suffix instead of a second-resolution timestamp, which collides
// under concurrent issuance.

func suffix() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// NewTokenID returns a token identity bound to a (trip, driver) pair.
func NewTokenID(tripID, driverID string) string {
	return fmt.Sprintf("TKN-%s-%s-%s", tripID, driverID, suffix())
}

// NewSessionID returns an MS session identity for a trip.
func NewSessionID(tripID string) string {
	return fmt.Sprintf("MS-%s-%s", tripID, suffix())
}

// NewSAPDocumentID returns a SAP posting reference for a completed session.
func NewSAPDocumentID(tripID, sessionID string) string {
	return fmt.Sprintf("SAP-%s-%s-%s", tripID, sessionID, suffix())
}

// NewEmergencyID returns an identity for a driver emergency report.
func NewEmergencyID(tripID string) string {
	return fmt.Sprintf("EMG-%s-%s", tripID, suffix())
}
