package lifecycle

import "slices"

// DonationIntervalDays is the minimum gap between two blood donations.
const DonationIntervalDays = 90

const HealthEligible = "eligible"

// CanDonate: eligible health status, available, and either no previous
// donation or at least DonationIntervalDays since it, counted in days.
func CanDonate(healthStatus string, lastDonation Date, available bool, today Date) bool {
	if healthStatus != HealthEligible || !available {
		return false
	}
	if lastDonation.IsZero() {
		return true
	}
	return today.DaysSince(lastDonation) >= DonationIntervalDays
}

// NextEligibleDate is the first day a donor may give again; zero when there
// is no previous donation.
func NextEligibleDate(lastDonation Date) Date {
	if lastDonation.IsZero() {
		return Date{}
	}
	return lastDonation.AddDays(DonationIntervalDays)
}

// Expired reports whether a blood unit's expiry day is before today.
func Expired(expiry Date, today Date) bool {
	return !expiry.IsZero() && expiry.Before(today)
}

// Urgent reports whether a blood request's urgency level is high or critical.
func Urgent(level string) bool {
	return slices.Contains([]string{"high", "critical"}, level)
}

// ValidOn reports whether today falls inside [from, until]. Missing bounds
// are open.
func ValidOn(from, until Date, today Date) bool {
	if !from.IsZero() && today.Before(from) {
		return false
	}
	if !until.IsZero() && today.After(until) {
		return false
	}
	return true
}
