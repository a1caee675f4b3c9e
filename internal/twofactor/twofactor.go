package twofactor

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"time"

	twofactorDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/twofactor"
)

const backupCodeCount = 10

type SetupResponse struct {
	SecretKey       string   `json:"secret_key"`
	ProvisioningURI string   `json:"provisioning_uri"`
	QRCode          string   `json:"qr_code"`
	BackupCodes     []string `json:"backup_codes"`
}

type StatusResponse struct {
	IsEnabled            bool       `json:"is_enabled"`
	CreatedAt            *time.Time `json:"created_at"`
	LastUsedAt           *time.Time `json:"last_used_at"`
	RemainingBackupCodes int        `json:"remaining_backup_codes"`
}

func statusOf(tf *twofactorDatamodel.TwoFactorAuth) (*StatusResponse, error) {
	if tf == nil {
		return &StatusResponse{}, nil
	}
	codes, err := decodeBackupCodes(tf.BackupCodes)
	if err != nil {
		return nil, err
	}
	created := tf.CreatedAt
	return &StatusResponse{
		IsEnabled:            tf.IsEnabled,
		CreatedAt:            &created,
		LastUsedAt:           tf.LastUsedAt,
		RemainingBackupCodes: len(codes),
	}, nil
}

// generateBackupCodes returns n random 8-character base32 codes.
func generateBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	buf := make([]byte, 5)
	for i := 0; i < n; i++ {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		codes = append(codes, base32.StdEncoding.EncodeToString(buf))
	}
	return codes, nil
}

func encodeBackupCodes(codes []string) (string, error) {
	raw, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeBackupCodes(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// consumeBackupCode removes code from codes, reporting whether it was present.
func consumeBackupCode(codes []string, code string) ([]string, bool) {
	for i, c := range codes {
		if c == code {
			return append(codes[:i:i], codes[i+1:]...), true
		}
	}
	return codes, false
}
