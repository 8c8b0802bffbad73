package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// CodePrefix tags the entity a referral code belongs to.
type CodePrefix string

const (
	AffiliatePrefix CodePrefix = "AFF"
)

// GenerateReferralCode returns {PREFIX}-{6 random base32 characters}, e.g. AFF-K3Q9ZD.
func GenerateReferralCode(prefix CodePrefix) (string, error) {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = strings.ToUpper(randomStr[:6])
	return string(prefix) + "-" + randomStr, nil
}

func GenerateAffiliateCode() (string, error) {
	return GenerateReferralCode(AffiliatePrefix)
}
