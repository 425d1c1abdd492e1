package welfare

import (
	"strconv"
	"strings"

	"ongon.org/internal/apperr"
	"ongon.org/internal/ledger"
)

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation("%s is required", field)
	}
	return nil
}

func positive(field string, m ledger.Money) error {
	if !m.IsPositive() {
		return apperr.Validation("%s must be greater than zero", field)
	}
	return nil
}

func nonNegative(field string, v *int) error {
	if v != nil && *v < 0 {
		return apperr.Validation("%s cannot be negative", field)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return apperr.Validation("%s must be one of %s", field, strings.Join(allowed, ", "))
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
